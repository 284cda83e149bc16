// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"fmt"

	"github.com/AccelByte/extend-stream-duels/pkg/game"
	"github.com/AccelByte/extend-stream-duels/pkg/game/builtin"
	"github.com/AccelByte/extend-stream-duels/pkg/gameconfig"
	"github.com/sirupsen/logrus"
)

// InitGames loads the game catalogue and the rules registry and checks they agree.
//
// ============================================================
// DEVELOPER: Register custom rules engines here.
// ============================================================
// Every enabled game type in the catalogue needs a rules factory.
// Built-in engines are registered by builtin.RegisterGames; pass
// extra factories (chess, connect four, ...) through `extra`.
// ============================================================
func InitGames(configPath string, extra map[string]game.RulesFactory) (*gameconfig.Config, *game.Registry, error) {
	games, err := gameconfig.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	logrus.Infof("loaded %d game types from %s", len(games.Games), configPath)

	rules := game.NewRegistry()
	if err := builtin.RegisterGames(rules); err != nil {
		return nil, nil, fmt.Errorf("failed to register builtin games: %w", err)
	}
	for gameType, factory := range extra {
		if err := rules.Register(gameType, factory); err != nil {
			return nil, nil, fmt.Errorf("failed to register %s: %w", gameType, err)
		}
	}

	if err := ValidateWiring(games, rules); err != nil {
		return nil, nil, err
	}
	logrus.Infof("registered %d rules engines", rules.Count())

	return games, rules, nil
}

// ValidateWiring ensures every enabled game type has a rules engine.
func ValidateWiring(games *gameconfig.Config, rules *game.Registry) error {
	for _, g := range games.Games {
		if !g.Enabled {
			continue
		}
		if !rules.Has(g.ID) {
			return fmt.Errorf("game %s is enabled but has no rules engine registered", g.ID)
		}
	}
	return nil
}
