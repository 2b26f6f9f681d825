// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/courier-dev/courier/relay"
)

// maxWebhookBody caps webhook request bodies. Notifications are status
// summaries, not payload transfers.
const maxWebhookBody = 1 << 20

// webhookEnvelope is the wire format accepted by POST /webhook.
type webhookEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// messageData is the payload for type "message": a chat message
// observed by an external bridge, routed exactly like a gateway
// message but with no reply channel.
type messageData struct {
	Content   string `json:"content"`
	Author    string `json:"author"`
	ChannelID string `json:"channelId"`
}

// notifyData is the payload for type "notify": a notification from
// local tooling that mints and announces a token.
type notifyData struct {
	Title       string `json:"title"`
	Message     string `json:"message"`
	Project     string `json:"project"`
	Kind        string `json:"kind"`
	TmuxSession string `json:"tmuxSession"`
}

// webhookHandler returns the HTTP handler for the notification
// ingress.
func (d *daemon) webhookHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", d.handleWebhook)
	mux.HandleFunc("GET /health", d.handleHealth)
	return mux
}

func (d *daemon) handleWebhook(writer http.ResponseWriter, request *http.Request) {
	request.Body = http.MaxBytesReader(writer, request.Body, maxWebhookBody)

	var envelope webhookEnvelope
	if err := json.NewDecoder(request.Body).Decode(&envelope); err != nil {
		writeJSONError(writer, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}

	switch envelope.Type {
	case "message":
		var data messageData
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			writeJSONError(writer, http.StatusBadRequest, "invalid message data")
			return
		}
		message := relay.InboundMessage{
			Text:    data.Content,
			Sender:  data.Author,
			Channel: data.ChannelID,
		}
		// Webhook-ingested messages have no reply channel: routing
		// outcomes surface only in the logs.
		if err := d.router.HandleMessage(request.Context(), message, relay.NoopReplier); err != nil {
			d.logger.Error("routing webhook message", "error", err, "author", data.Author)
			writeJSONError(writer, http.StatusInternalServerError, "routing failed")
			return
		}
		writeJSON(writer, http.StatusOK, map[string]string{"status": "ok"})

	case "notify":
		var data notifyData
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			writeJSONError(writer, http.StatusBadRequest, "invalid notify data")
			return
		}
		kind := data.Kind
		if kind == "" {
			kind = "webhook"
		}
		token, err := d.dispatcher.Dispatch(request.Context(), relay.Notification{
			Title:       data.Title,
			Message:     data.Message,
			Project:     data.Project,
			Kind:        kind,
			TmuxSession: data.TmuxSession,
		})
		if err != nil {
			d.logger.Error("dispatching webhook notification", "error", err, "title", data.Title)
			writeJSONError(writer, http.StatusInternalServerError, "dispatch failed")
			return
		}
		writeJSON(writer, http.StatusOK, map[string]string{"status": "ok", "token": token})

	default:
		// Unknown types are acknowledged so senders with newer event
		// vocabularies don't treat the relay as broken.
		d.logger.Warn("unknown webhook event type", "type", envelope.Type)
		writeJSON(writer, http.StatusOK, map[string]string{"status": "ignored"})
	}
}

func (d *daemon) handleHealth(writer http.ResponseWriter, _ *http.Request) {
	writeJSON(writer, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "courier-webhook",
	})
}

func writeJSON(writer http.ResponseWriter, status int, body any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(body)
}

func writeJSONError(writer http.ResponseWriter, status int, message string) {
	writeJSON(writer, status, map[string]string{"error": message})
}
