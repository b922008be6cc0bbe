package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/anidex/internal/models"
	"github.com/desertthunder/anidex/internal/tasks"
)

type fakeEngine struct {
	items   []models.UnreadItem
	err     error
	updates []tasks.ProgressUpdate
}

func (f *fakeEngine) Reconcile(ctx context.Context, progress chan<- tasks.ProgressUpdate, username, language string, workers int) ([]models.UnreadItem, error) {
	for _, u := range f.updates {
		progress <- u
	}
	return f.items, f.err
}

var unread = []models.UnreadItem{
	{CatalogID: "abc", Title: "Dandadan", ExternalID: 132029, Progress: 150, Latest: 160},
	{CatalogID: "def", Title: "Blue Box", ExternalID: 132182, Progress: 10, Latest: 10.5},
}

// drain runs cmd until the reconcile result arrives, feeding every message back into the model.
func drain(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for range 100 {
		msg := cmd()
		_, next := m.Update(msg)
		if done, ok := msg.(Msg); ok && done.kind == MsgReconcileComplete {
			return
		}
		cmd = next
	}
	t.Fatal("reconcile never completed")
}

func TestModel(t *testing.T) {
	t.Run("NewModel defaults opener", func(t *testing.T) {
		m := NewModel(context.Background(), &fakeEngine{}, Options{})
		if m.opts.Open == nil {
			t.Error("expected default browser opener")
		}
		if m.view != ProgressView {
			t.Errorf("expected ProgressView, got %v", m.view)
		}
	})

	t.Run("progress then results", func(t *testing.T) {
		engine := &fakeEngine{
			items: unread,
			updates: []tasks.ProgressUpdate{
				{Phase: tasks.FetchLists, Total: 1, Message: "Fetching"},
				{Phase: tasks.ResolveEntries, Step: 1, Total: 2, Message: "[1/2] Dandadan"},
			},
		}
		m := NewModel(context.Background(), engine, Options{Username: "reader", Language: "en"})
		m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

		drain(t, m, m.startReconcile())

		if m.view != ResultView {
			t.Fatalf("expected ResultView, got %v", m.view)
		}
		if len(m.resultList.Items()) != 2 {
			t.Errorf("expected 2 list items, got %d", len(m.resultList.Items()))
		}
		if view := m.View(); !strings.Contains(view, "Dandadan") {
			t.Errorf("expected title in view, got:\n%s", view)
		}
	})

	t.Run("progress view shows phase", func(t *testing.T) {
		m := NewModel(context.Background(), &fakeEngine{}, Options{Username: "reader"})
		m.Update(progressUpdateMsg(tasks.ProgressUpdate{Phase: tasks.ResolveEntries, Step: 3, Total: 4}))

		if view := m.View(); !strings.Contains(view, "Checking MangaDex (3/4)") {
			t.Errorf("expected phase in view, got:\n%s", view)
		}
	})

	t.Run("enter opens selected title", func(t *testing.T) {
		var opened string
		m := NewModel(context.Background(), &fakeEngine{}, Options{
			SiteURL: "https://mangadex.org",
			Open: func(target string) error {
				opened = target
				return nil
			},
		})
		m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
		m.Update(reconcileCompleteMsg(unread, nil))

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if cmd == nil {
			t.Fatal("expected open command")
		}
		m.Update(cmd())

		if opened != "https://mangadex.org/title/abc" {
			t.Errorf("expected first title to open, got %q", opened)
		}
		if !strings.Contains(m.View(), "Opened https://mangadex.org/title/abc") {
			t.Errorf("expected status line, got:\n%s", m.View())
		}
	})

	t.Run("open failure is reported", func(t *testing.T) {
		m := NewModel(context.Background(), &fakeEngine{}, Options{
			Open: func(string) error { return errors.New("no browser") },
		})
		m.Update(reconcileCompleteMsg(unread, nil))

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m.Update(cmd())

		if !strings.Contains(m.status, "no browser") {
			t.Errorf("expected failure status, got %q", m.status)
		}
	})

	t.Run("failure view", func(t *testing.T) {
		m := NewModel(context.Background(), &fakeEngine{}, Options{})
		m.Update(reconcileCompleteMsg(nil, errors.New("anilist: status 404")))

		if view := m.View(); !strings.Contains(view, "Reconciliation failed") || !strings.Contains(view, "404") {
			t.Errorf("expected error view, got:\n%s", view)
		}
	})

	t.Run("caught up view", func(t *testing.T) {
		m := NewModel(context.Background(), &fakeEngine{}, Options{})
		m.Update(reconcileCompleteMsg([]models.UnreadItem{}, nil))

		if view := m.View(); !strings.Contains(view, "All caught up") {
			t.Errorf("expected caught-up view, got:\n%s", view)
		}
	})

	t.Run("refresh restarts reconciliation", func(t *testing.T) {
		engine := &fakeEngine{items: unread[:1]}
		m := NewModel(context.Background(), engine, Options{})
		m.Update(reconcileCompleteMsg(nil, errors.New("boom")))

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
		if m.view != ProgressView || m.err != nil {
			t.Fatalf("expected fresh progress view, got view=%v err=%v", m.view, m.err)
		}
		if cmd == nil {
			t.Fatal("expected restart command")
		}

		drain(t, m, m.waitForProgress())
		if len(m.items) != 1 {
			t.Errorf("expected 1 item after refresh, got %d", len(m.items))
		}
	})

	t.Run("quit", func(t *testing.T) {
		m := NewModel(context.Background(), &fakeEngine{}, Options{})
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}

func TestUnreadItem(t *testing.T) {
	item := unreadItem{item: unread[1]}
	if item.Title() != "Blue Box" || item.FilterValue() != "Blue Box" {
		t.Errorf("unexpected title: %s", item.Title())
	}
	if want := "current: 10 • latest: 10.5 • 0.5 new"; item.Description() != want {
		t.Errorf("Description() = %q, want %q", item.Description(), want)
	}
}
