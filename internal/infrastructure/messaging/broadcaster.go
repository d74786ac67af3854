// Package messaging provides the concrete implementation of the SSE broadcaster.
package messaging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/logging"
)

// PromptBroadcaster manages session-specific SSE connections used to push
// conversion prompts and limit notifications to connected clients.
type PromptBroadcaster struct {
	sessions map[string][]chan string // sessionId -> []channels
	maxConns int
	mu       sync.Mutex
	logger   *logging.ChanneledLogger
}

// NewPromptBroadcaster creates a new broadcaster. maxConns caps the number
// of concurrent SSE connections per session.
func NewPromptBroadcaster(maxConns int, logger *logging.ChanneledLogger) *PromptBroadcaster {
	return &PromptBroadcaster{
		sessions: make(map[string][]chan string),
		maxConns: maxConns,
		logger:   logger,
	}
}

// AddClient registers a new SSE client for a session. Returns nil when the
// session is already at its connection cap.
func (b *PromptBroadcaster) AddClient(sessionID string) chan string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.sessions[sessionID]) >= b.maxConns {
		b.logger.SSE().Warn("SSE connection cap reached", "sessionId", sessionID, "cap", b.maxConns)
		return nil
	}

	ch := make(chan string, 10)
	b.sessions[sessionID] = append(b.sessions[sessionID], ch)

	b.logger.SSE().Debug("SSE client registered", "sessionId", sessionID, "connections", len(b.sessions[sessionID]))
	return ch
}

// RemoveClient removes an SSE client for a session.
func (b *PromptBroadcaster) RemoveClient(ch chan string, sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	clients, exists := b.sessions[sessionID]
	if !exists {
		return
	}

	newClients := make([]chan string, 0, len(clients)-1)
	for _, client := range clients {
		if client != ch {
			newClients = append(newClients, client)
		}
	}
	if len(newClients) == 0 {
		delete(b.sessions, sessionID)
	} else {
		b.sessions[sessionID] = newClients
	}

	b.logger.SSE().Debug("SSE client unregistered", "sessionId", sessionID)
}

// GetSessionConnectionCount returns the connection count for a session.
func (b *PromptBroadcaster) GetSessionConnectionCount(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions[sessionID])
}

// BroadcastPrompt pushes a conversion prompt event to every connection for
// the session.
func (b *PromptBroadcaster) BroadcastPrompt(sessionID, reason string, promptedAt time.Time) {
	payload, _ := json.Marshal(map[string]string{
		"sessionId":  sessionID,
		"reason":     reason,
		"promptedAt": promptedAt.UTC().Format(time.RFC3339),
	})
	message := fmt.Sprintf("event: conversion_prompt\ndata: %s\n\n", payload)
	b.sendToSession(sessionID, message)
}

// BroadcastLimitHit pushes a limit-reached event to the session.
func (b *PromptBroadcaster) BroadcastLimitHit(sessionID, feature string, count, limit int) {
	payload, _ := json.Marshal(map[string]any{
		"feature": feature,
		"count":   count,
		"limit":   limit,
	})
	message := fmt.Sprintf("event: limit_reached\ndata: %s\n\n", payload)
	b.sendToSession(sessionID, message)
}

func (b *PromptBroadcaster) sendToSession(sessionID, message string) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.SSE().Error("Panic recovered in broadcast", "error", r, "sessionId", sessionID)
		}
	}()

	b.mu.Lock()
	defer b.mu.Unlock()

	clients, exists := b.sessions[sessionID]
	if !exists {
		return
	}
	for _, ch := range clients {
		select {
		case ch <- message:
		default:
			b.logger.SSE().Warn("SSE channel full, message dropped", "sessionId", sessionID)
		}
	}
}
