package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeQuiz(t *testing.T, root, subject, name, data string) {
	t.Helper()
	dir := filepath.Join(root, subject)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), []byte(data), 0o644))
}

func TestSubjectsAndQuizzes(t *testing.T) {
	root := t.TempDir()
	writeQuiz(t, root, "math", "algebra", `[]`)
	writeQuiz(t, root, "math", "geometry", `[]`)
	writeQuiz(t, root, "history", "rome", `[]`)
	// A stray non-JSON file must not show up as a quiz
	require.NoError(t, os.WriteFile(filepath.Join(root, "math", "notes.txt"), []byte("x"), 0o644))

	store := NewStore(root)

	subjects, err := store.Subjects()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"math", "history"}, subjects)

	quizzes, err := store.Quizzes("math")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"algebra", "geometry"}, quizzes)
}

func TestQuizzes_UnknownSubject(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Quizzes("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_Valid(t *testing.T) {
	root := t.TempDir()
	writeQuiz(t, root, "math", "algebra", `[
		{"question": "2+2?", "options": ["3", "4"], "correct_answer": "4", "explanation": "Basic addition."},
		{"question": "3*3?", "options": ["6", "9"], "correct_answer": "9"}
	]`)

	store := NewStore(root)
	questions, err := store.Load("math", "algebra")
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, "2+2?", questions[0].Question)
	assert.Equal(t, "4", questions[0].CorrectAnswer)
	assert.Equal(t, "Basic addition.", questions[0].Explanation)
	assert.Empty(t, questions[1].Explanation)
}

func TestLoad_SkipsMalformedEntries(t *testing.T) {
	root := t.TempDir()
	writeQuiz(t, root, "math", "algebra", `[
		{"question": "ok?", "options": ["a", "b"], "correct_answer": "a"},
		{"question": "", "options": ["a"], "correct_answer": "a"},
		{"question": "no options", "correct_answer": "a"},
		{"question": "no answer", "options": ["a", "b"]}
	]`)

	store := NewStore(root)
	questions, err := store.Load("math", "algebra")
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "ok?", questions[0].Question)
}

func TestLoad_NotFound(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Load("math", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_InvalidJSON(t *testing.T) {
	root := t.TempDir()
	writeQuiz(t, root, "math", "broken", `{not json`)

	store := NewStore(root)
	_, err := store.Load("math", "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSave_RefusesOverwrite(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	questions := []Question{{Question: "q?", Options: []string{"a", "b"}, CorrectAnswer: "a"}}

	require.NoError(t, store.Save("Math", "Linear Algebra", questions))
	// Saved under sanitized names
	loaded, err := store.Load("math", "linear_algebra")
	require.NoError(t, err)
	assert.Len(t, loaded, 1)

	err = store.Save("Math", "Linear Algebra", questions)
	assert.ErrorIs(t, err, ErrExists)
}

func TestStripAnswers(t *testing.T) {
	questions := []Question{
		{Question: "q1", Options: []string{"a", "b", "c"}, CorrectAnswer: "c"},
		{Question: "q2", Options: []string{"x", "y"}, CorrectAnswer: "x", Explanation: "because"},
	}

	stripped := StripAnswers(questions)
	require.Len(t, stripped, 2)
	assert.Equal(t, 2, stripped[0].CorrectAnswerIndex)
	assert.Equal(t, 0, stripped[1].CorrectAnswerIndex)
	assert.Equal(t, "because", stripped[1].Explanation)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "world_war_2", Sanitize("World War 2"))
	assert.Equal(t, "c__", Sanitize("C++"))
	assert.Equal(t, "math", Sanitize("math"))
}
