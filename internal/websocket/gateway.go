package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/scythe504/kartquiz-backend/internal"
	"github.com/scythe504/kartquiz-backend/internal/game"
	"github.com/scythe504/kartquiz-backend/internal/quiz"
	"github.com/scythe504/kartquiz-backend/internal/utils"
)

var (
	ErrBadRequest    = errors.New("malformed message")
	ErrUnknownIntent = errors.New("unknown intent")
)

const maxCodeAttempts = 16

// Options configures intent handling.
type Options struct {
	// StrictErrors sends an error event to the requester for every rejected
	// intent.
	StrictErrors bool
	// ReplaceRooms lets create-room overwrite an existing room code.
	ReplaceRooms   bool
	RoomCodeLength int
}

// Gateway turns client intents into room operations and routes the resulting
// events to the requester, the host or the whole room.
type Gateway struct {
	registry *game.Registry
	quizzes  quiz.Store
	hub      *Hub
	opts     Options
	logger   *zap.Logger
	src      internal.Source
}

func NewGateway(registry *game.Registry, quizzes quiz.Store, hub *Hub, opts Options, logger *zap.Logger) *Gateway {
	if opts.RoomCodeLength <= 0 {
		opts.RoomCodeLength = 6
	}
	return &Gateway{
		registry: registry,
		quizzes:  quizzes,
		hub:      hub,
		opts:     opts,
		logger:   logger,
		src:      utils.RandSource{},
	}
}

// WithSource replaces the randomness used for player colors.
func (g *Gateway) WithSource(src internal.Source) *Gateway {
	g.src = src
	return g
}

// =============================================================================
// MESSAGE ROUTING
// =============================================================================

// Handle decodes one envelope from sender and runs the matching intent.
func (g *Gateway) Handle(ctx context.Context, sender string, raw []byte) {
	var msg internal.Message[json.RawMessage]
	if err := json.Unmarshal(raw, &msg); err != nil {
		g.reject(sender, "", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	g.logger.Debug("received intent",
		zap.String("intent", msg.Type),
		zap.String("player", sender),
	)

	var err error
	switch msg.Type {
	case internal.IntentCreateRoom:
		err = g.createRoom(sender, msg.Data)
	case internal.IntentSetQuestions:
		err = g.setQuestions(sender, msg.Data)
	case internal.IntentJoinRoom:
		err = g.joinRoom(sender, msg.Data)
	case internal.IntentLeaveRoom:
		err = g.leaveRoom(sender, msg.Data)
	case internal.IntentStartQuiz:
		err = g.startQuiz(sender, msg.Data)
	case internal.IntentSubmitGuess:
		err = g.submitGuess(sender, msg.Data)
	case internal.IntentShowResults:
		err = g.showResults(sender, msg.Data)
	case internal.IntentNextQuestion:
		err = g.nextQuestion(sender, msg.Data)
	case internal.IntentGetSavedQuizzes:
		err = g.getSavedQuizzes(ctx, sender)
	case internal.IntentSaveQuiz:
		err = g.saveQuiz(ctx, sender, msg.Data)
	case internal.IntentLoadQuiz:
		err = g.loadQuiz(ctx, sender, msg.Data)
	case internal.IntentDeleteQuiz:
		err = g.deleteQuiz(ctx, sender, msg.Data)
	default:
		err = fmt.Errorf("%w %q", ErrUnknownIntent, msg.Type)
	}

	if err != nil {
		g.reject(sender, msg.Type, err)
	}
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return v, nil
}

// ErrorCode classifies an intent error for the error event.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrRoomNotFound), errors.Is(err, quiz.ErrQuizNotFound):
		return CodeNotFound
	case errors.Is(err, game.ErrRoomExists), errors.Is(err, game.ErrHostCannotJoin):
		return CodeConflict
	case errors.Is(err, game.ErrUnauthorized), errors.Is(err, game.ErrNotInRoom):
		return CodeUnauthorized
	case errors.Is(err, game.ErrInvalidState), errors.Is(err, game.ErrNoQuestions):
		return CodeInvalidState
	case errors.Is(err, game.ErrInvalidCoordinate), errors.Is(err, quiz.ErrInvalidQuiz),
		errors.Is(err, ErrBadRequest), errors.Is(err, ErrUnknownIntent):
		return CodeBadRequest
	default:
		return CodeInternal
	}
}

func (g *Gateway) reject(sender, intent string, err error) {
	code := ErrorCode(err)
	fields := []zap.Field{
		zap.String("intent", intent),
		zap.String("player", sender),
		zap.String("code", code),
		zap.Error(err),
	}

	message := err.Error()
	if code == CodeInternal {
		g.logger.Error("intent failed", fields...)
		message = "internal error"
	} else {
		g.logger.Debug("intent rejected", fields...)
	}

	if !g.opts.StrictErrors {
		return
	}
	g.send(sender, internal.EventError, internal.ErrorData{
		Intent:  intent,
		Code:    code,
		Message: message,
	})
}

// =============================================================================
// BROADCASTING & MESSAGING
// =============================================================================

func (g *Gateway) send(id, event string, data any) {
	g.hub.Send(id, internal.Message[any]{Type: event, Data: data})
}

// broadcast sends to the host and every current player. The caller holds
// room.Mu so events of one intent stay ahead of the next intent's events.
func (g *Gateway) broadcast(room *internal.Room, event string, data any) {
	g.hub.Broadcast(room.Audience(), internal.Message[any]{Type: event, Data: data})
}

func (g *Gateway) broadcastPlayers(room *internal.Room) {
	g.broadcast(room, internal.EventPlayerListUpdated, internal.PlayerListData{Players: room.PlayerList()})
}

// =============================================================================
// ROOM INTENTS
// =============================================================================

func (g *Gateway) createRoom(sender string, raw json.RawMessage) error {
	req, err := decode[internal.CreateRoomData](raw)
	if err != nil {
		return err
	}

	code := utils.NormalizeRoomCode(req.RoomCode)
	title := strings.TrimSpace(req.QuizTitle)
	host := internal.Host{Id: sender, Name: strings.TrimSpace(req.HostName)}

	var room *internal.Room
	switch {
	case code == "":
		room, err = g.createWithGeneratedCode(title, host)
	case g.opts.ReplaceRooms:
		var replaced *internal.Room
		room, replaced = g.registry.Replace(code, title, host)
		if replaced != nil {
			g.notifyClosed(replaced, ReasonReplaced)
		}
	default:
		room, err = g.registry.Create(code, title, host)
	}
	if err != nil {
		g.send(sender, internal.EventRoomCreated, internal.RoomCreatedData{
			RoomCode: code,
			Success:  false,
			Message:  "Room code is already in use",
		})
		return err
	}

	g.logger.Info("room created",
		zap.String("room", room.Code),
		zap.String("host", sender),
		zap.String("title", title),
	)

	return g.announceCreated(sender, room)
}

// announceCreated confirms room to its host under the room lock, so the host
// sees room-created before any join. A room replaced or removed since Create
// is reported as a failed creation.
func (g *Gateway) announceCreated(sender string, room *internal.Room) error {
	room.Mu.Lock()
	defer room.Mu.Unlock()

	if room.Closed {
		g.send(sender, internal.EventRoomCreated, internal.RoomCreatedData{
			RoomCode: room.Code,
			Success:  false,
			Message:  "Room was closed before it could be used",
		})
		return fmt.Errorf("room %s: %w", room.Code, game.ErrRoomNotFound)
	}

	g.send(sender, internal.EventRoomCreated, internal.RoomCreatedData{RoomCode: room.Code, Success: true})
	return nil
}

func (g *Gateway) createWithGeneratedCode(title string, host internal.Host) (*internal.Room, error) {
	var err error
	for i := 0; i < maxCodeAttempts; i++ {
		var room *internal.Room
		room, err = g.registry.Create(utils.GenerateRoomCode(g.opts.RoomCodeLength), title, host)
		if err == nil {
			return room, nil
		}
		if !errors.Is(err, game.ErrRoomExists) {
			return nil, err
		}
	}
	return nil, err
}

func (g *Gateway) setQuestions(sender string, raw json.RawMessage) error {
	req, err := decode[internal.SetQuestionsData](raw)
	if err != nil {
		return err
	}

	return g.registry.WithRoom(utils.NormalizeRoomCode(req.RoomCode), func(room *internal.Room) error {
		if err := game.RequireHost(room, sender); err != nil {
			return err
		}
		if err := game.SetQuestions(room, req.Questions); err != nil {
			return err
		}
		g.send(sender, internal.EventQuestionsSet, internal.QuestionsSetData{Success: true, Count: len(room.Questions)})
		return nil
	})
}

func (g *Gateway) joinRoom(sender string, raw json.RawMessage) error {
	req, err := decode[internal.JoinRoomData](raw)
	if err != nil {
		return err
	}

	err = g.registry.WithRoom(utils.NormalizeRoomCode(req.RoomCode), func(room *internal.Room) error {
		player, err := game.AddPlayer(room, sender, req.PlayerName, g.src)
		if err != nil {
			return err
		}

		g.logger.Info("player joined",
			zap.String("room", room.Code),
			zap.String("player", sender),
			zap.String("name", player.Name),
		)

		g.send(sender, internal.EventJoinSuccess, internal.JoinSuccessData{
			RoomCode:  room.Code,
			PlayerID:  sender,
			QuizTitle: room.Title,
			Color:     player.Color,
		})
		g.broadcastPlayers(room)
		return nil
	})
	if err != nil {
		g.send(sender, internal.EventJoinError, internal.JoinErrorData{Message: joinErrorMessage(err)})
		return err
	}
	return nil
}

func joinErrorMessage(err error) string {
	switch {
	case errors.Is(err, game.ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, game.ErrHostCannotJoin):
		return "The host cannot join as a player"
	case errors.Is(err, game.ErrInvalidState):
		return "The quiz has already finished"
	default:
		return "Could not join room"
	}
}

// leaveRoom removes the sender from one room. A leaving host tears the room
// down.
func (g *Gateway) leaveRoom(sender string, raw json.RawMessage) error {
	req, err := decode[internal.RoomRequest](raw)
	if err != nil {
		return err
	}
	code := utils.NormalizeRoomCode(req.RoomCode)

	hosting := false
	err = g.registry.WithRoom(code, func(room *internal.Room) error {
		if room.IsHost(sender) {
			hosting = true
			return nil
		}
		if !game.RemovePlayer(room, sender) {
			return fmt.Errorf("room %s: %w", room.Code, game.ErrNotInRoom)
		}
		g.broadcastPlayers(room)
		return nil
	})
	if err != nil {
		return err
	}

	if hosting {
		if room, ok := g.registry.Remove(code); ok {
			g.hostLeft(room)
		}
	}
	return nil
}

func (g *Gateway) startQuiz(sender string, raw json.RawMessage) error {
	req, err := decode[internal.RoomRequest](raw)
	if err != nil {
		return err
	}

	return g.registry.WithRoom(utils.NormalizeRoomCode(req.RoomCode), func(room *internal.Room) error {
		if err := game.RequireHost(room, sender); err != nil {
			return err
		}
		view, err := game.StartQuiz(room)
		if err != nil {
			return err
		}

		g.logger.Info("quiz started",
			zap.String("room", room.Code),
			zap.Int("questions", view.TotalQuestions),
			zap.Int("players", room.GetPlayerCount()),
		)
		g.broadcast(room, internal.EventQuizStarted, view)
		return nil
	})
}

func (g *Gateway) submitGuess(sender string, raw json.RawMessage) error {
	req, err := decode[internal.SubmitGuessData](raw)
	if err != nil {
		return err
	}
	if req.Lat == nil || req.Lng == nil {
		return fmt.Errorf("%w: guess needs lat and lng", ErrBadRequest)
	}
	guess := internal.NormalizeCoordinate(*req.Lat, *req.Lng)

	return g.registry.WithRoom(utils.NormalizeRoomCode(req.RoomCode), func(room *internal.Room) error {
		progress, err := game.SubmitGuess(room, sender, guess)
		if err != nil {
			return err
		}
		g.send(room.Host.Id, internal.EventGuessCountUpdated, progress)
		g.send(sender, internal.EventGuessSubmitted, internal.SuccessData{Success: true})
		return nil
	})
}

func (g *Gateway) showResults(sender string, raw json.RawMessage) error {
	req, err := decode[internal.RoomRequest](raw)
	if err != nil {
		return err
	}

	return g.registry.WithRoom(utils.NormalizeRoomCode(req.RoomCode), func(room *internal.Room) error {
		if err := game.RequireHost(room, sender); err != nil {
			return err
		}
		results, err := game.ShowResults(room)
		if err != nil {
			return err
		}
		g.broadcast(room, internal.EventResultsReady, results)
		return nil
	})
}

func (g *Gateway) nextQuestion(sender string, raw json.RawMessage) error {
	req, err := decode[internal.RoomRequest](raw)
	if err != nil {
		return err
	}

	return g.registry.WithRoom(utils.NormalizeRoomCode(req.RoomCode), func(room *internal.Room) error {
		if err := game.RequireHost(room, sender); err != nil {
			return err
		}
		adv, err := game.Advance(room)
		if err != nil {
			return err
		}

		if adv.Finished() {
			g.logger.Info("quiz finished",
				zap.String("room", room.Code),
				zap.Int("players", len(adv.Final.Leaderboard)),
			)
			g.broadcast(room, internal.EventQuizFinished, *adv.Final)
			return nil
		}
		g.broadcast(room, internal.EventNextQuestionReady, *adv.Next)
		return nil
	})
}

// =============================================================================
// SAVED QUIZ INTENTS
// =============================================================================

func (g *Gateway) getSavedQuizzes(ctx context.Context, sender string) error {
	quizzes, err := g.quizzes.List(ctx)
	if err != nil {
		return err
	}
	g.send(sender, internal.EventSavedQuizzesList, SavedQuizzesData{Quizzes: quizzes})
	return nil
}

func (g *Gateway) saveQuiz(ctx context.Context, sender string, raw json.RawMessage) error {
	req, err := decode[internal.SaveQuizData](raw)
	if err != nil {
		return err
	}

	saved, err := g.quizzes.Save(ctx, quiz.SavedQuiz{
		ID:        req.Id,
		Title:     req.Title,
		Questions: req.Questions,
	})
	if err != nil {
		g.send(sender, internal.EventQuizSaved, QuizResultData{Success: false, Message: "Quiz could not be saved"})
		return err
	}

	g.logger.Info("quiz saved",
		zap.String("quiz", saved.ID),
		zap.Int("questions", len(saved.Questions)),
	)
	g.send(sender, internal.EventQuizSaved, QuizResultData{Success: true, ID: saved.ID})
	return nil
}

// loadQuiz returns a saved quiz. With a room code and host rights its
// questions are applied to that room as well.
func (g *Gateway) loadQuiz(ctx context.Context, sender string, raw json.RawMessage) error {
	req, err := decode[internal.QuizRequest](raw)
	if err != nil {
		return err
	}

	loaded, err := g.quizzes.Get(ctx, req.Id)
	if err != nil {
		g.send(sender, internal.EventQuizLoaded, QuizLoadedData{Success: false, Message: "Quiz not found"})
		return err
	}
	g.send(sender, internal.EventQuizLoaded, QuizLoadedData{Success: true, Quiz: &loaded})

	if strings.TrimSpace(req.RoomCode) == "" {
		return nil
	}
	return g.registry.WithRoom(utils.NormalizeRoomCode(req.RoomCode), func(room *internal.Room) error {
		if err := game.RequireHost(room, sender); err != nil {
			return err
		}
		if err := game.SetQuestions(room, loaded.Questions); err != nil {
			return err
		}
		g.send(sender, internal.EventQuestionsSet, internal.QuestionsSetData{Success: true, Count: len(room.Questions)})
		return nil
	})
}

func (g *Gateway) deleteQuiz(ctx context.Context, sender string, raw json.RawMessage) error {
	req, err := decode[internal.QuizRequest](raw)
	if err != nil {
		return err
	}

	if err := g.quizzes.Delete(ctx, req.Id); err != nil {
		g.send(sender, internal.EventQuizDeleted, QuizResultData{Success: false, ID: req.Id, Message: "Quiz not found"})
		return err
	}
	g.send(sender, internal.EventQuizDeleted, QuizResultData{Success: true, ID: req.Id})
	return nil
}

// =============================================================================
// DISCONNECT & TEARDOWN
// =============================================================================

// Connected greets a new connection with its id.
func (g *Gateway) Connected(id string) {
	g.send(id, internal.EventConnected, internal.ConnectedData{PlayerID: id})
}

// Disconnect tears down every room id hosts and removes id from every other
// roster.
func (g *Gateway) Disconnect(id string) {
	for _, room := range g.registry.DestroyIfHost(id) {
		g.hostLeft(room)
	}

	for _, room := range g.registry.All() {
		_ = g.registry.WithRoom(room.Code, func(room *internal.Room) error {
			if !game.RemovePlayer(room, id) {
				return game.ErrNotInRoom
			}
			g.logger.Info("player left",
				zap.String("room", room.Code),
				zap.String("player", id),
			)
			g.broadcastPlayers(room)
			return nil
		})
	}
}

// RoomExpired tells the audience of a reaped room that it is gone.
func (g *Gateway) RoomExpired(room *internal.Room) {
	g.notifyClosed(room, ReasonExpired)
}

// hostLeft tells the remaining players of a destroyed room that the host is
// gone.
func (g *Gateway) hostLeft(room *internal.Room) {
	room.Mu.Lock()
	defer room.Mu.Unlock()

	g.logger.Info("host disconnected, room destroyed",
		zap.String("room", room.Code),
		zap.Int("players", len(room.Players)),
	)

	audience := room.Audience()[1:]
	g.hub.Broadcast(audience, internal.Message[any]{
		Type: internal.EventHostDisconnected,
		Data: HostDisconnectedData{RoomCode: room.Code},
	})
}

func (g *Gateway) notifyClosed(room *internal.Room, reason string) {
	room.Mu.Lock()
	defer room.Mu.Unlock()

	g.broadcast(room, internal.EventRoomClosed, internal.RoomClosedData{RoomCode: room.Code, Reason: reason})
}
