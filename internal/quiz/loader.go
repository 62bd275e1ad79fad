package quiz

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/scythe504/kartquiz-backend/internal"
)

type yamlQuizFile struct {
	Quiz SavedQuiz `yaml:"quiz"`
}

// LoadQuizFromFile reads a quiz definition. Files ending in .csv are read as
// question rows, everything else as YAML.
func LoadQuizFromFile(path string, logger *zap.Logger) (SavedQuiz, error) {
	f, err := os.Open(path)
	if err != nil {
		return SavedQuiz{}, fmt.Errorf("reading quiz file %s: %w", path, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return LoadQuizFromCSV(f, title, logger.With(zap.String("file", path)))
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return SavedQuiz{}, fmt.Errorf("reading quiz file %s: %w", path, err)
	}
	return LoadQuizFromBytes(data)
}

// LoadQuizFromBytes parses a YAML quiz document of the form
//
//	quiz:
//	  id: nordic-capitals
//	  title: Nordic capitals
//	  questions:
//	    - text: Where is Oslo?
//	      correct_lat: 59.91
//	      correct_lng: 10.75
//	      max_distance: 500
func LoadQuizFromBytes(data []byte) (SavedQuiz, error) {
	var file yamlQuizFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return SavedQuiz{}, fmt.Errorf("parsing quiz YAML: %w", err)
	}
	if len(file.Quiz.Questions) == 0 {
		return SavedQuiz{}, fmt.Errorf("quiz %q has no questions: %w", file.Quiz.Title, ErrInvalidQuiz)
	}
	q, err := Prepare(file.Quiz)
	if err != nil {
		return SavedQuiz{}, fmt.Errorf("validating quiz: %w", err)
	}
	return q, nil
}

// LoadQuizFromCSV reads rows of
//
//	text,lat,lng,max_distance[,time_limit[,image_url[,audio_url]]]
//
// An optional header row is skipped. Malformed rows are logged and skipped.
func LoadQuizFromCSV(r io.Reader, title string, logger *zap.Logger) (SavedQuiz, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return SavedQuiz{}, fmt.Errorf("parsing quiz CSV: %w", err)
	}

	var questions []internal.Question
	for i, record := range records {
		question, err := parseQuestionRecord(record)
		if err != nil {
			if i == 0 {
				// header
				continue
			}
			logger.Warn("skipping invalid question row",
				zap.Int("line", i+1),
				zap.Strings("record", record),
				zap.Error(err),
			)
			continue
		}
		questions = append(questions, question)
	}

	if len(questions) == 0 {
		return SavedQuiz{}, fmt.Errorf("quiz %q has no valid questions: %w", title, ErrInvalidQuiz)
	}
	return Prepare(SavedQuiz{Title: title, Questions: questions})
}

func parseQuestionRecord(record []string) (internal.Question, error) {
	if len(record) < 4 {
		return internal.Question{}, fmt.Errorf("want at least 4 fields, got %d", len(record))
	}

	text := strings.TrimSpace(record[0])
	if text == "" {
		return internal.Question{}, errors.New("empty question text")
	}

	var nums [3]float64
	for i := range nums {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
		if err != nil {
			return internal.Question{}, fmt.Errorf("field %d: %w", i+2, err)
		}
		nums[i] = v
	}

	q := internal.Question{
		Text:        text,
		CorrectLat:  nums[0],
		CorrectLng:  nums[1],
		MaxDistance: nums[2],
	}
	if !q.Answer().Valid() {
		return internal.Question{}, fmt.Errorf("answer (%v, %v) out of range", q.CorrectLat, q.CorrectLng)
	}

	if len(record) > 4 && strings.TrimSpace(record[4]) != "" {
		limit, err := strconv.Atoi(strings.TrimSpace(record[4]))
		if err != nil {
			return internal.Question{}, fmt.Errorf("time limit: %w", err)
		}
		q.TimeLimit = limit
	}
	if len(record) > 5 {
		q.ImageURL = strings.TrimSpace(record[5])
	}
	if len(record) > 6 {
		q.AudioURL = strings.TrimSpace(record[6])
	}
	return q, nil
}

// LoadQuizzesFromDir loads every .yaml, .yml and .csv file in dir.
func LoadQuizzesFromDir(dir string, logger *zap.Logger) ([]SavedQuiz, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading quiz directory %s: %w", dir, err)
	}

	var quizzes []SavedQuiz
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml", ".csv":
		default:
			continue
		}
		q, err := LoadQuizFromFile(filepath.Join(dir, entry.Name()), logger)
		if err != nil {
			return nil, fmt.Errorf("loading quiz from %s: %w", entry.Name(), err)
		}
		quizzes = append(quizzes, q)
	}

	if len(quizzes) == 0 {
		return nil, fmt.Errorf("no quiz files found in %s", dir)
	}
	return quizzes, nil
}
