package game

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/scythe504/kartquiz-backend/internal"
)

type fixedSource struct{ n int }

func (s fixedSource) Intn(n int) int { return s.n % n }

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func stockholmQuestion() internal.Question {
	return internal.Question{
		Text:        "Where is Stockholm?",
		CorrectLat:  59.0,
		CorrectLng:  18.0,
		MaxDistance: 500,
		TimeLimit:   30,
	}
}

func newLobby(t *testing.T, questions ...internal.Question) *internal.Room {
	t.Helper()
	room := internal.NewRoom("ABCD", "Geo", internal.Host{Id: "H1", Name: "Host"}, fixedNow())
	require.NoError(t, SetQuestions(room, questions))
	return room
}

func TestScenario_SinglePlayerSingleQuestion(t *testing.T) {
	room := newLobby(t, stockholmQuestion())

	_, err := AddPlayer(room, "P1", "Pia", fixedSource{n: 42})
	require.NoError(t, err)

	view, err := StartQuiz(room)
	require.NoError(t, err)
	assert.Equal(t, 1, view.QuestionNumber)
	assert.Equal(t, 1, view.TotalQuestions)
	assert.Equal(t, "Where is Stockholm?", view.Text)
	assert.Equal(t, 500.0, view.MaxDistance)

	progress, err := SubmitGuess(room, "P1", internal.Coordinate{Lat: 59.1, Lng: 18.1})
	require.NoError(t, err)
	assert.Equal(t, internal.GuessProgress{GuessCount: 1, TotalPlayers: 1}, progress)

	results, err := ShowResults(room)
	require.NoError(t, err)
	require.Len(t, results.Results, 1)

	r := results.Results[0]
	assert.GreaterOrEqual(t, r.Distance, 11)
	assert.LessOrEqual(t, r.Distance, 13)
	assert.InDelta(t, 978, r.Points, 5)
	assert.Equal(t, r.Points, room.Scores["P1"])
	assert.Equal(t, r.Points, r.TotalScore)
	assert.Equal(t, "Pia", r.PlayerName)
	assert.Equal(t, "hsl(42, 70%, 60%)", r.PlayerColor)
	assert.Equal(t, internal.Coordinate{Lat: 59.0, Lng: 18.0}, results.CorrectAnswer)
	assert.Equal(t, internal.PhaseResults, room.Phase)

	adv, err := Advance(room)
	require.NoError(t, err)
	require.True(t, adv.Finished())
	assert.Nil(t, adv.Next)
	assert.Equal(t, internal.PhaseFinished, room.Phase)
	assert.Equal(t, 1, room.CurrentIndex)
	if assert.NotNil(t, adv.Final.Winner) {
		assert.Equal(t, "P1", adv.Final.Winner.PlayerID)
		assert.Equal(t, r.Points, adv.Final.Winner.Score)
	}
}

func TestSetQuestions_RejectedAfterStart(t *testing.T) {
	room := newLobby(t, stockholmQuestion())
	_, err := StartQuiz(room)
	require.NoError(t, err)

	err = SetQuestions(room, []internal.Question{stockholmQuestion(), stockholmQuestion()})
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Len(t, room.Questions, 1)
}

func TestSetQuestions_InvalidAnswer(t *testing.T) {
	room := internal.NewRoom("ABCD", "Geo", internal.Host{Id: "H1"}, fixedNow())
	bad := stockholmQuestion()
	bad.CorrectLat = 95
	assert.ErrorIs(t, SetQuestions(room, []internal.Question{bad}), ErrInvalidCoordinate)
	assert.Empty(t, room.Questions)
}

func TestSetQuestions_CopiesSlice(t *testing.T) {
	qs := []internal.Question{stockholmQuestion()}
	room := newLobby(t, qs...)
	qs[0].Text = "mutated"
	assert.Equal(t, "Where is Stockholm?", room.Questions[0].Text)
}

func TestStartQuiz_NoQuestions(t *testing.T) {
	room := internal.NewRoom("ABCD", "Geo", internal.Host{Id: "H1"}, fixedNow())
	_, err := StartQuiz(room)
	assert.ErrorIs(t, err, ErrNoQuestions)
	assert.Equal(t, internal.PhaseLobby, room.Phase)
}

func TestStartQuiz_OnlyFromLobby(t *testing.T) {
	room := newLobby(t, stockholmQuestion())
	_, err := StartQuiz(room)
	require.NoError(t, err)
	_, err = StartQuiz(room)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestAddPlayer_HostCannotJoin(t *testing.T) {
	room := newLobby(t, stockholmQuestion())
	_, err := AddPlayer(room, "H1", "Host", fixedSource{})
	assert.ErrorIs(t, err, ErrHostCannotJoin)
	assert.Empty(t, room.Players)
}

func TestAddPlayer_RejoinKeepsColorAndScore(t *testing.T) {
	room := newLobby(t, stockholmQuestion())
	first, err := AddPlayer(room, "P1", "Pia", fixedSource{n: 10})
	require.NoError(t, err)
	room.Scores["P1"] = 300

	again, err := AddPlayer(room, "P1", "Pia 2", fixedSource{n: 200})
	require.NoError(t, err)
	assert.Equal(t, first.Color, again.Color)
	assert.Equal(t, "Pia 2", again.Name)
	assert.Equal(t, 300, room.Scores["P1"])
	assert.Len(t, room.Players, 1)
}

func TestAddPlayer_DefaultName(t *testing.T) {
	room := newLobby(t, stockholmQuestion())
	p, err := AddPlayer(room, "P1", "   ", fixedSource{})
	require.NoError(t, err)
	assert.Equal(t, internal.DefaultPlayerName, p.Name)
}

func TestAddPlayer_FinishedRoom(t *testing.T) {
	room := newLobby(t, stockholmQuestion())
	room.Phase = internal.PhaseFinished
	_, err := AddPlayer(room, "P1", "Pia", fixedSource{})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSubmitGuess_Rejections(t *testing.T) {
	room := newLobby(t, stockholmQuestion())
	_, err := AddPlayer(room, "P1", "Pia", fixedSource{})
	require.NoError(t, err)

	_, err = SubmitGuess(room, "P1", internal.Coordinate{Lat: 1, Lng: 1})
	assert.ErrorIs(t, err, ErrInvalidState, "lobby")

	_, err = StartQuiz(room)
	require.NoError(t, err)

	_, err = SubmitGuess(room, "stranger", internal.Coordinate{Lat: 1, Lng: 1})
	assert.ErrorIs(t, err, ErrNotInRoom)

	_, err = SubmitGuess(room, "H1", internal.Coordinate{Lat: 1, Lng: 1})
	assert.ErrorIs(t, err, ErrNotInRoom, "host is not a player")

	_, err = SubmitGuess(room, "P1", internal.Coordinate{Lat: 91, Lng: 1})
	assert.ErrorIs(t, err, ErrInvalidCoordinate)

	assert.Empty(t, room.Guesses)
	assert.Equal(t, internal.PhaseQuestion, room.Phase)
}

func TestSubmitGuess_Overwrites(t *testing.T) {
	room := newLobby(t, stockholmQuestion())
	_, _ = AddPlayer(room, "P1", "Pia", fixedSource{})
	_, _ = AddPlayer(room, "P2", "Per", fixedSource{})
	_, err := StartQuiz(room)
	require.NoError(t, err)

	_, err = SubmitGuess(room, "P1", internal.Coordinate{Lat: 10, Lng: 10})
	require.NoError(t, err)
	progress, err := SubmitGuess(room, "P1", internal.Coordinate{Lat: 59, Lng: 18})
	require.NoError(t, err)

	assert.Equal(t, internal.GuessProgress{GuessCount: 1, TotalPlayers: 2}, progress)
	assert.Equal(t, internal.Coordinate{Lat: 59, Lng: 18}, room.Guesses["P1"])
}

func TestShowResults_OnlyFromQuestion(t *testing.T) {
	room := newLobby(t, stockholmQuestion())
	_, err := ShowResults(room)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestShowResults_NonGuessersUnchanged(t *testing.T) {
	room := newLobby(t, stockholmQuestion(), stockholmQuestion())
	_, _ = AddPlayer(room, "P1", "Pia", fixedSource{})
	_, _ = AddPlayer(room, "P2", "Per", fixedSource{})
	_, err := StartQuiz(room)
	require.NoError(t, err)

	_, err = SubmitGuess(room, "P1", internal.Coordinate{Lat: 59, Lng: 18})
	require.NoError(t, err)
	results, err := ShowResults(room)
	require.NoError(t, err)

	require.Len(t, results.Results, 1)
	assert.Equal(t, 1000, room.Scores["P1"])
	assert.Equal(t, 0, room.Scores["P2"])
}

func TestShowResults_SortedByTotalThenID(t *testing.T) {
	room := newLobby(t, stockholmQuestion())
	for _, id := range []string{"P3", "P1", "P2"} {
		_, err := AddPlayer(room, id, id, fixedSource{})
		require.NoError(t, err)
	}
	_, err := StartQuiz(room)
	require.NoError(t, err)

	exact := internal.Coordinate{Lat: 59, Lng: 18}
	_, _ = SubmitGuess(room, "P3", exact)
	_, _ = SubmitGuess(room, "P2", exact)
	_, _ = SubmitGuess(room, "P1", internal.Coordinate{Lat: 0, Lng: 0})

	results, err := ShowResults(room)
	require.NoError(t, err)
	ids := make([]string, 0, len(results.Results))
	for _, r := range results.Results {
		ids = append(ids, r.PlayerID)
	}
	assert.Equal(t, []string{"P2", "P3", "P1"}, ids)
	assert.Equal(t, 0, results.Results[2].Points)
}

func TestAdvance_OnlyFromResults(t *testing.T) {
	room := newLobby(t, stockholmQuestion())
	_, err := Advance(room)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = StartQuiz(room)
	require.NoError(t, err)
	_, err = Advance(room)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestAdvance_NextQuestionClearsGuesses(t *testing.T) {
	second := stockholmQuestion()
	second.Text = "Where is Oslo?"
	room := newLobby(t, stockholmQuestion(), second)
	_, _ = AddPlayer(room, "P1", "Pia", fixedSource{})
	_, err := StartQuiz(room)
	require.NoError(t, err)
	_, _ = SubmitGuess(room, "P1", internal.Coordinate{Lat: 59, Lng: 18})
	_, err = ShowResults(room)
	require.NoError(t, err)

	adv, err := Advance(room)
	require.NoError(t, err)
	require.False(t, adv.Finished())
	assert.Equal(t, 2, adv.Next.QuestionNumber)
	assert.Equal(t, "Where is Oslo?", adv.Next.Text)
	assert.Empty(t, room.Guesses)
	assert.Equal(t, 1, room.CurrentIndex)
	assert.Equal(t, internal.PhaseQuestion, room.Phase)
}

func TestRemovePlayer_KeepsScore(t *testing.T) {
	room := newLobby(t, stockholmQuestion())
	_, _ = AddPlayer(room, "P1", "Pia", fixedSource{})
	_, _ = AddPlayer(room, "P2", "Per", fixedSource{})
	_, err := StartQuiz(room)
	require.NoError(t, err)
	_, _ = SubmitGuess(room, "P1", internal.Coordinate{Lat: 59, Lng: 18})
	room.Scores["P1"] = 1234

	assert.True(t, RemovePlayer(room, "P1"))
	assert.False(t, RemovePlayer(room, "P1"))

	assert.NotContains(t, room.Players, "P1")
	assert.NotContains(t, room.Guesses, "P1")
	assert.Equal(t, 1234, room.Scores["P1"])
	assert.Contains(t, room.Participants, "P1")
}

func TestRemovedPlayerStaysOnLeaderboard(t *testing.T) {
	room := newLobby(t, stockholmQuestion())
	_, _ = AddPlayer(room, "P1", "Pia", fixedSource{})
	_, _ = AddPlayer(room, "P2", "Per", fixedSource{})
	_, err := StartQuiz(room)
	require.NoError(t, err)
	_, _ = SubmitGuess(room, "P1", internal.Coordinate{Lat: 59, Lng: 18})
	_, err = ShowResults(room)
	require.NoError(t, err)
	RemovePlayer(room, "P1")

	adv, err := Advance(room)
	require.NoError(t, err)
	require.True(t, adv.Finished())
	require.Len(t, adv.Final.Leaderboard, 2)
	assert.Equal(t, "P1", adv.Final.Winner.PlayerID)
	assert.Equal(t, "Pia", adv.Final.Winner.PlayerName)
	assert.False(t, adv.Final.Winner.Connected)
}

func TestScenario_EqualFinalScoresDeterministic(t *testing.T) {
	for i := 0; i < 20; i++ {
		room := newLobby(t, stockholmQuestion())
		_, _ = AddPlayer(room, "zeta", "Zeta", fixedSource{})
		_, _ = AddPlayer(room, "alpha", "Alpha", fixedSource{})
		_, err := StartQuiz(room)
		require.NoError(t, err)
		_, _ = SubmitGuess(room, "zeta", internal.Coordinate{Lat: 59.5, Lng: 18})
		_, _ = SubmitGuess(room, "alpha", internal.Coordinate{Lat: 58.5, Lng: 18})
		_, err = ShowResults(room)
		require.NoError(t, err)
		require.Equal(t, room.Scores["zeta"], room.Scores["alpha"])

		adv, err := Advance(room)
		require.NoError(t, err)
		require.Len(t, adv.Final.Leaderboard, 2)
		assert.Equal(t, "alpha", adv.Final.Leaderboard[0].PlayerID)
		assert.Equal(t, "zeta", adv.Final.Leaderboard[1].PlayerID)
	}
}

// Property: N questions visit the question phase exactly N times and finish once,
// scores never decrease, guesses are cleared on every advance, and the
// question index stays in range.
func TestPropertyFullGame(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(t, "questions")
		playerCount := rapid.IntRange(0, 5).Draw(t, "players")

		questions := make([]internal.Question, n)
		for i := range questions {
			questions[i] = internal.Question{
				Text:        fmt.Sprintf("q%d", i),
				CorrectLat:  rapid.Float64Range(-90, 90).Draw(t, "lat"),
				CorrectLng:  rapid.Float64Range(-180, 180).Draw(t, "lng"),
				MaxDistance: rapid.Float64Range(-10, 5000).Draw(t, "max"),
			}
		}

		room := internal.NewRoom("PROP", "Prop", internal.Host{Id: "host"}, fixedNow())
		if err := SetQuestions(room, questions); err != nil {
			t.Fatalf("SetQuestions: %v", err)
		}
		ids := make([]string, playerCount)
		for i := range ids {
			ids[i] = fmt.Sprintf("p%d", i)
			if _, err := AddPlayer(room, ids[i], ids[i], fixedSource{n: i}); err != nil {
				t.Fatalf("AddPlayer: %v", err)
			}
		}

		if _, err := StartQuiz(room); err != nil {
			t.Fatalf("StartQuiz: %v", err)
		}
		visits, finishes := 1, 0

		for {
			if room.CurrentIndex < 0 || room.CurrentIndex >= len(room.Questions) {
				t.Fatalf("index %d out of range while in %s", room.CurrentIndex, room.Phase)
			}
			before := make(map[string]int, len(room.Scores))
			for id, s := range room.Scores {
				before[id] = s
			}

			guessed := make(map[string]bool)
			for _, id := range ids {
				if rapid.Bool().Draw(t, "guesses") {
					if _, err := SubmitGuess(room, id, drawCoordinate(t, "guess")); err != nil {
						t.Fatalf("SubmitGuess: %v", err)
					}
					guessed[id] = true
				}
			}

			results, err := ShowResults(room)
			if err != nil {
				t.Fatalf("ShowResults: %v", err)
			}
			earned := make(map[string]int)
			for _, r := range results.Results {
				earned[r.PlayerID] = r.Points
			}
			for _, id := range ids {
				if room.Scores[id] != before[id]+earned[id] {
					t.Fatalf("score for %s = %d, want %d + %d", id, room.Scores[id], before[id], earned[id])
				}
				if !guessed[id] && earned[id] != 0 {
					t.Fatalf("%s earned points without guessing", id)
				}
			}

			adv, err := Advance(room)
			if err != nil {
				t.Fatalf("Advance: %v", err)
			}
			if len(room.Guesses) != 0 {
				t.Fatalf("guesses not cleared after advance")
			}
			if adv.Finished() {
				finishes++
				break
			}
			visits++
		}

		if visits != n || finishes != 1 {
			t.Fatalf("visited question %d times and finished %d times, want %d and 1", visits, finishes, n)
		}
		if room.Phase != internal.PhaseFinished || room.CurrentIndex != n {
			t.Fatalf("final phase %s index %d, want finished %d", room.Phase, room.CurrentIndex, n)
		}
	})
}
