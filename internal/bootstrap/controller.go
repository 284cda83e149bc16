// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"time"

	"github.com/AccelByte/extend-stream-duels/pkg/broadcast"
	"github.com/AccelByte/extend-stream-duels/pkg/game"
	"github.com/AccelByte/extend-stream-duels/pkg/gameconfig"
	"github.com/AccelByte/extend-stream-duels/pkg/history"
	"github.com/AccelByte/extend-stream-duels/pkg/ledger"
	"github.com/AccelByte/extend-stream-duels/pkg/lifecycle"
	"github.com/AccelByte/extend-stream-duels/pkg/store"
	"github.com/AccelByte/extend-stream-duels/pkg/trigger"
	"github.com/sirupsen/logrus"
)

// Dependencies are the collaborators the lifecycle controller is built from.
type Dependencies struct {
	Games   *gameconfig.Config
	Rules   *game.Registry
	Store   store.Store
	History history.Recorder
	Ledger  ledger.Ledger
	Emitter broadcast.Emitter
}

// ControllerSettings are the timing knobs read from the environment.
type ControllerSettings struct {
	HostID          string
	HostName        string
	DedupWindow     time.Duration
	DedupSweep      time.Duration
	GraceDelay      time.Duration
	WatchdogTimeout time.Duration
}

// InitController builds the deduplicator and the lifecycle controller.
// The caller runs the deduplicator sweep with dedup.Run(ctx).
func InitController(deps Dependencies, s ControllerSettings) (*lifecycle.Controller, *trigger.Deduplicator) {
	dedup := trigger.NewDeduplicator(s.DedupWindow, s.DedupSweep)

	controller := lifecycle.New(lifecycle.Config{
		Games:           deps.Games,
		Rules:           deps.Rules,
		Store:           deps.Store,
		History:         deps.History,
		Ledger:          deps.Ledger,
		Emitter:         deps.Emitter,
		Dedup:           dedup,
		Host:            lifecycle.Host{ID: s.HostID, DisplayName: s.HostName},
		GraceDelay:      s.GraceDelay,
		WatchdogTimeout: s.WatchdogTimeout,
	})
	logrus.Infof("initialized lifecycle controller (host=%s)", s.HostID)

	return controller, dedup
}
