package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanquest/quest-progression/pkg/cache"
	"github.com/urbanquest/quest-progression/pkg/config"
	"github.com/urbanquest/quest-progression/pkg/domain"
)

const exampleCatalog = "../../config/quests.json"

// setEnv points the settings at catalogPath with in-memory storage and no Redis.
func setEnv(t *testing.T, catalogPath string) {
	t.Helper()
	t.Setenv("QUEST_CATALOG_PATH", catalogPath)
	t.Setenv("QUEST_STORAGE_MODE", config.StorageModeMemory)
	t.Setenv("QUEST_LOG_LEVEL", "error")
	t.Setenv("QUEST_REDIS_ADDR", "")
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr bool
	}{
		{name: "defaults", args: nil, want: options{}},
		{
			name: "all flags",
			args: []string{"-catalog", "q.yaml", "-city", "Berat", "-player", "p1", "-check-db", "-json"},
			want: options{catalogPath: "q.yaml", city: "Berat", playerID: "p1", checkDB: true, jsonOutput: true},
		},
		{name: "migrate implies check-db", args: []string{"-migrate"}, want: options{migrate: true, checkDB: true}},
		{name: "unknown flag", args: []string{"-nope"}, wantErr: true},
		{name: "positional argument", args: []string{"tirana01"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFlags(tt.args, io.Discard)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRun_Summary(t *testing.T) {
	setEnv(t, exampleCatalog)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), nil, &out, io.Discard))

	text := out.String()
	assert.Contains(t, text, "QUEST")
	assert.Contains(t, text, "tirana01")
	assert.Contains(t, text, "berat01")
	assert.Contains(t, text, "multiple_choice=1,photo=1,text=1")
}

func TestRun_SummaryJSON(t *testing.T) {
	setEnv(t, exampleCatalog)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-json", "-city", "berat"}, &out, io.Discard))

	var decoded struct {
		Quests []questSummary `json:"quests"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded.Quests, 1)

	berat := decoded.Quests[0]
	assert.Equal(t, "berat01", berat.ID)
	assert.Equal(t, 3, berat.Stops)
	assert.Equal(t, 1, berat.RemoteStops)
	assert.Equal(t, 90, berat.TotalPoints)
	assert.Equal(t, 100.0, berat.MaxRadius)
}

func TestRun_CatalogFlagOverridesEnv(t *testing.T) {
	setEnv(t, filepath.Join(t.TempDir(), "missing.json"))

	var out bytes.Buffer
	err := run(context.Background(), []string{"-catalog", exampleCatalog}, &out, io.Discard)

	require.NoError(t, err)
	assert.Contains(t, out.String(), "tirana01")
}

func TestRun_InvalidCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quests.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"quests": [{"id": "x", "title": "X", "stops": []}]}`), 0600))
	setEnv(t, path)

	err := run(context.Background(), nil, io.Discard, io.Discard)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "load catalog")
	assert.Contains(t, err.Error(), "at least one stop")
}

func TestRun_InvalidSettings(t *testing.T) {
	setEnv(t, exampleCatalog)
	t.Setenv("QUEST_STORAGE_MODE", "mongo")

	err := run(context.Background(), nil, io.Discard, io.Discard)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "QUEST_STORAGE_MODE")
}

func TestRun_PlayerRequiresPostgres(t *testing.T) {
	setEnv(t, exampleCatalog)

	var out bytes.Buffer
	err := run(context.Background(), []string{"-player", "player-1", "-json"}, &out, io.Discard)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "QUEST_STORAGE_MODE=postgres")
	assert.Empty(t, out.String(), "nothing is printed before the error")
}

func TestListProgress(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg, err := config.NewConfigLoader(exampleCatalog, logger).LoadConfig()
	require.NoError(t, err)
	catalog := cache.NewInMemoryQuestCatalog(cfg, exampleCatalog, logger)

	svc, closeFn, err := buildService(&config.Settings{StorageMode: config.StorageModeMemory}, catalog, nil, logger)
	require.NoError(t, err)
	defer closeFn()

	ctx := context.Background()
	_, _, err = svc.BeginQuest(ctx, "player-1", "tirana01")
	require.NoError(t, err)
	_, _, err = svc.BeginQuest(ctx, "player-1", "berat01")
	require.NoError(t, err)

	t.Run("json is a single document", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, listProgress(ctx, svc, options{playerID: "player-1", city: "Tirana", jsonOutput: true}, &out))

		dec := json.NewDecoder(&out)
		var decoded struct {
			PlayerID string                  `json:"player_id"`
			Progress []*domain.QuestProgress `json:"progress"`
		}
		require.NoError(t, dec.Decode(&decoded))
		assert.False(t, dec.More(), "output must hold exactly one JSON document")

		assert.Equal(t, "player-1", decoded.PlayerID)
		require.Len(t, decoded.Progress, 1)
		assert.Equal(t, "tirana01", decoded.Progress[0].QuestID)
	})

	t.Run("table", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, listProgress(ctx, svc, options{playerID: "player-1"}, &out))

		assert.Contains(t, out.String(), "tirana01")
		assert.Contains(t, out.String(), "berat01")
		assert.Contains(t, out.String(), "in_progress")
	})

	t.Run("unknown player", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, listProgress(ctx, svc, options{playerID: "player-2"}, &out))
		assert.Contains(t, out.String(), "no progress for player player-2")
	})
}

// Integration test - only runs if DB_HOST is set
func TestRun_PlayerProgressPostgres(t *testing.T) {
	if os.Getenv("DB_HOST") == "" {
		t.Skip("Skipping integration test: DB_HOST not set")
	}
	setEnv(t, exampleCatalog)
	t.Setenv("QUEST_STORAGE_MODE", config.StorageModePostgres)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-migrate", "-player", "nobody", "-json"}, &out, io.Discard))

	dec := json.NewDecoder(&out)
	var decoded map[string]any
	require.NoError(t, dec.Decode(&decoded))
	assert.False(t, dec.More(), "output must hold exactly one JSON document")
	assert.Equal(t, "nobody", decoded["player_id"])
	assert.NotContains(t, decoded, "quests")
}

func TestBuildService(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg, err := config.NewConfigLoader(exampleCatalog, logger).LoadConfig()
	require.NoError(t, err)
	catalog := cache.NewInMemoryQuestCatalog(cfg, exampleCatalog, logger)

	t.Run("memory", func(t *testing.T) {
		svc, closeFn, err := buildService(&config.Settings{StorageMode: config.StorageModeMemory, DefaultArrivalRadiusMeters: 50}, catalog, nil, logger)
		require.NoError(t, err)
		defer closeFn()

		progress, _, err := svc.BeginQuest(context.Background(), "player-1", "berat01")
		require.NoError(t, err)
		assert.Equal(t, 1, progress.CurrentStopOrder)
	})

	t.Run("postgres without connection", func(t *testing.T) {
		_, _, err := buildService(&config.Settings{StorageMode: config.StorageModePostgres}, catalog, nil, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requires a database connection")
	})

	t.Run("unreachable redis", func(t *testing.T) {
		_, _, err := buildService(&config.Settings{
			StorageMode:  config.StorageModeMemory,
			RedisAddr:    "127.0.0.1:1",
			EventChannel: "urbanquest.progress",
		}, catalog, nil, logger)
		require.Error(t, err)
	})
}

func TestSummarize(t *testing.T) {
	radius := 120.0
	quests := []*domain.QuestDefinition{
		{
			ID: "q1",
			Stops: []*domain.StopDefinition{
				{Order: 1, Points: 10, ChallengeSpec: domain.ChallengeSpec{Type: domain.ChallengeKindText}},
				{Order: 2, Points: 20, ArrivalRadiusMeters: &radius, ChallengeSpec: domain.ChallengeSpec{Type: domain.ChallengeKindText}},
				{Order: 3, Points: 5, Remote: true, ChallengeSpec: domain.ChallengeSpec{Type: domain.ChallengeKindAudio}},
			},
		},
	}

	got := summarize(quests, 50)

	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Stops)
	assert.Equal(t, 1, got[0].RemoteStops)
	assert.Equal(t, 35, got[0].TotalPoints)
	assert.Equal(t, 120.0, got[0].MaxRadius)
	assert.Equal(t, map[string]int{"text": 2, "audio": 1}, got[0].Challenges)
	assert.Equal(t, "audio=1,text=2", formatKinds(got[0].Challenges))
}
