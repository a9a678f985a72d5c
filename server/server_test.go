package server

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/drinkcal/roomserver/models"
)

func chatMessage(i int, text string) models.ChatMessage {
	return models.ChatMessage{
		ID:        fmt.Sprintf("msg%d", i),
		UserID:    "user1",
		Message:   text,
		Timestamp: time.Now(),
	}
}

func TestChatHistoryPages_SplitsLargeLogs(t *testing.T) {
	var messages []models.ChatMessage
	for i := 0; i < 200; i++ {
		messages = append(messages, chatMessage(i, strings.Repeat("x", 200)))
	}

	budget := 4 * 1024
	pages := chatHistoryPages(messages, budget)

	if len(pages) < 2 {
		t.Fatalf("Expected a large log to split into multiple pages, got %d", len(pages))
	}

	total := 0
	for _, page := range pages {
		data, err := json.Marshal(page)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		if len(data) > budget {
			t.Errorf("Page of %d messages marshals to %d bytes, over the %d budget", len(page), len(data), budget)
		}
		total += len(page)
	}
	if total != len(messages) {
		t.Errorf("Expected all %d messages across pages, got %d", len(messages), total)
	}

	// Order is preserved across page boundaries.
	next := 0
	for _, page := range pages {
		for _, msg := range page {
			if want := fmt.Sprintf("msg%d", next); msg.ID != want {
				t.Fatalf("Expected message %s at position %d, got %s", want, next, msg.ID)
			}
			next++
		}
	}
}

func TestChatHistoryPages_SmallLogIsOnePage(t *testing.T) {
	messages := []models.ChatMessage{
		chatMessage(0, "hello"),
		chatMessage(1, "hi"),
	}

	pages := chatHistoryPages(messages, chatHistoryPageBytes)
	if len(pages) != 1 {
		t.Fatalf("Expected a small log in one page, got %d", len(pages))
	}
	if len(pages[0]) != 2 {
		t.Errorf("Expected both messages in the page, got %d", len(pages[0]))
	}
}

func TestChatHistoryPages_EmptyLog(t *testing.T) {
	if pages := chatHistoryPages(nil, chatHistoryPageBytes); len(pages) != 0 {
		t.Errorf("Expected no pages for an empty log, got %d", len(pages))
	}
}
