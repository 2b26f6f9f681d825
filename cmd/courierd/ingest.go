// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"time"

	"github.com/courier-dev/courier/messaging"
	"github.com/courier-dev/courier/relay"
)

// reconnectDelay is the pause before re-establishing the gateway after
// a sync loop failure.
const reconnectDelay = 5 * time.Second

// runIngest feeds room messages into the command router until the
// context is cancelled. Each pass connects the gateway, opens a room
// watcher at the current sync position, and long-polls for message
// events. A watcher failure tears the gateway down and starts over
// after a short delay; history is never replayed, so the restart cannot
// re-inject old commands.
func (d *daemon) runIngest(ctx context.Context) {
	for {
		if err := d.ingestOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.Error("ingest loop failed, reconnecting",
				"error", err,
				"delay", reconnectDelay,
			)
			if err := d.gateway.Disconnect(); err != nil {
				d.logger.Error("gateway teardown after ingest failure", "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// ingestOnce runs a single connect-watch-route pass. Returns when the
// watcher gives up or the context is cancelled.
func (d *daemon) ingestOnce(ctx context.Context) error {
	session, err := d.gateway.EnsureConnected(ctx)
	if err != nil {
		return err
	}

	roomID := d.gateway.RoomID()
	watcher, err := messaging.WatchRoom(ctx, session, roomID, &messaging.SyncFilter{
		TimelineTypes: []string{"m.room.message"},
		TimelineLimit: 50,
		ExcludeState:  true,
	})
	if err != nil {
		return err
	}

	for {
		event, err := watcher.WaitForEvent(ctx, func(event messaging.Event) bool {
			_, _, ok := event.MessageBody()
			return ok
		})
		if err != nil {
			return err
		}
		d.routeEvent(ctx, event, roomID)
	}
}

// routeEvent converts a room message event into an inbound relay
// message and hands it to the router. Notices are skipped before
// routing: the router's own replies arrive as m.notice, and feeding
// them back would be a loop.
func (d *daemon) routeEvent(ctx context.Context, event messaging.Event, roomID messaging.RoomID) {
	msgType, body, ok := event.MessageBody()
	if !ok || msgType == "m.notice" {
		return
	}

	message := relay.InboundMessage{
		Text:    body,
		Sender:  event.Sender.String(),
		IsSelf:  event.Sender == d.botUserID,
		Channel: roomID.String(),
	}
	if err := d.router.HandleMessage(ctx, message, d.gateway); err != nil {
		d.logger.Error("routing room message",
			"error", err,
			"sender", event.Sender,
			"event_id", event.EventID,
		)
	}
}
