package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-rag/internal/chathistory"
	"vision-rag/internal/models"
)

type fakeAsker struct {
	resp  *models.PromptResponse
	err   error
	calls []string
}

func (f *fakeAsker) Query(ctx context.Context, query string, topK int) (*models.PromptResponse, error) {
	f.calls = append(f.calls, query)
	return f.resp, f.err
}

func newModel(t *testing.T, asker Asker) (Model, *chathistory.Store) {
	t.Helper()
	store := chathistory.NewStore(t.TempDir())
	m := New(context.Background(), asker, store, "20240101_120000_abcd1234", nil, 2)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model), store
}

func submit(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestSubmitQuestionSavesTurn(t *testing.T) {
	asker := &fakeAsker{resp: &models.PromptResponse{
		Query:   "What was revenue?",
		Sources: []string{"data/processed/images/report_page3.png"},
		Content: "Revenue was 10M.",
		Elapsed: 1500 * time.Millisecond,
	}}
	m, store := newModel(t, asker)

	m, cmd := submit(t, m, "  What was revenue?  ")
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Empty(t, m.input.Value())
	require.Len(t, m.History(), 1)

	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.False(t, m.busy)
	assert.Equal(t, []string{"What was revenue?"}, asker.calls)
	assert.Contains(t, m.View(), "Revenue was 10M.")

	saved, err := store.Load(m.sessionID)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, chathistory.RoleUser, saved[0].Role)
	assert.Equal(t, "What was revenue?", saved[0].Content)
	assert.Equal(t, chathistory.RoleAssistant, saved[1].Role)
	assert.Equal(t, "Revenue was 10M.", saved[1].Content)
	assert.Equal(t, []string{"data/processed/images/report_page3.png"}, saved[1].Images)
}

func TestSubmitFailureRecordsSentinel(t *testing.T) {
	asker := &fakeAsker{err: errors.New("index missing")}
	m, store := newModel(t, asker)

	m, cmd := submit(t, m, "anything")
	next, _ := m.Update(cmd())
	m = next.(Model)

	assert.Contains(t, m.status, "index missing")
	saved, err := store.Load(m.sessionID)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, models.FailureSentinel, saved[1].Content)
}

func TestBlankAndBusyInputIgnored(t *testing.T) {
	asker := &fakeAsker{resp: &models.PromptResponse{Content: "ok"}}
	m, _ := newModel(t, asker)

	m, cmd := submit(t, m, "   ")
	assert.Nil(t, cmd)
	assert.Empty(t, m.History())

	m, cmd = submit(t, m, "first")
	require.NotNil(t, cmd)
	m, cmd = submit(t, m, "second")
	assert.Nil(t, cmd)
	assert.Len(t, m.History(), 1)
}

func TestCtrlCQuits(t *testing.T) {
	m, _ := newModel(t, &fakeAsker{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestRenderTranscript(t *testing.T) {
	assert.Equal(t, "No messages yet.", renderTranscript(nil))
	out := renderTranscript([]chathistory.Message{
		{Role: chathistory.RoleUser, Content: "q"},
		{Role: chathistory.RoleAssistant, Content: "a", Images: []string{"/x/doc_page1.png"}},
	})
	assert.Contains(t, out, "q")
	assert.Contains(t, out, "doc_page1.png")
}

func TestTranscriptFitsInsideBox(t *testing.T) {
	m, _ := newModel(t, &fakeAsker{})
	fw, fh := transcriptBoxStyle.GetFrameSize()
	assert.Equal(t, 80-fw, m.viewport.Width)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 10, Height: 4})
	m = next.(Model)
	assert.Equal(t, 20, m.viewport.Width)
	assert.Equal(t, 3, m.viewport.Height)
	assert.Positive(t, fh)
}
