package objectives

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeternum-guides/nwdb/internal/cache"
	"github.com/aeternum-guides/nwdb/internal/logger"
	"github.com/aeternum-guides/nwdb/internal/nwdb"
)

const tasksDataset = `[
	{"TaskID": "Task_Perk2_ArtifactSword_02", "Type": "TaskKillContribution", "KillEnemyType": "DireWolf", "TargetQty": "3", "GameModeID": "DungeonAmrine"},
	{"TaskID": "Task_Perk1_ArtifactSword_01", "Type": "TaskKillContribution", "KillEnemyType": "wolf01", "TerritoryID": 42},
	{"TaskID": "Task_Perk3_ArtifactSword_03", "Type": "TaskKillContribution", "KillEnemyType": "Ghost", "GameModeID": "DungeonShatteredObelisk01"},
	{"TaskID": "Task_Perk4_ArtifactSword_04", "Type": "TaskGameEvent", "TargetQty": 2},
	{"TaskID": "Task_Main_ArtifactSword", "Type": "TaskGameEvent"},
	{"TaskID": "Task_Perk1_OtherBlade_01", "Type": "TaskGameEvent"}
]`

const gameModesDataset = `{"data": [
	{"GameModeID": "DungeonAmrine", "DisplayName": "Amrine Excavation"},
	{"GameModeID": "DungeonShatteredObelisk01", "DisplayName": "@ui_dungeon_obelisk"}
]}`

type fakeNWDB struct {
	*httptest.Server
	mu   sync.Mutex
	hits map[string]int
}

func newFakeNWDB(t *testing.T, routes map[string]string) *fakeNWDB {
	t.Helper()
	f := &fakeNWDB{hits: make(map[string]int)}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.URL.Path]++
		f.mu.Unlock()

		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeNWDB) Hits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func newTestService(t *testing.T, server *fakeNWDB) *Service {
	t.Helper()
	store := cache.NewMemoryCache()
	client := nwdb.NewClient(&nwdb.Config{BaseURL: server.URL}, store, logger.Discard())
	t.Cleanup(func() { client.Close() })

	return NewService(client, store, &Config{
		TasksURL:     server.URL + "/db/data/objectivetasks.json",
		GameModesURL: "/db/data/gamemodes.json",
	}, logger.Discard())
}

func TestService_BuildArtifactObjectives(t *testing.T) {
	server := newFakeNWDB(t, map[string]string{
		"/db/data/objectivetasks.json": tasksDataset,
		"/db/data/gamemodes.json":      gameModesDataset,
		"/db/zone/42.json":             `{"data": {"id": 42, "name": "Windward Reach"}}`,
		"/db/creature/DireWolf.json":   `{"id": "DireWolf", "name": "Dire Wolf"}`,
	})
	service := newTestService(t, server)
	ctx := context.Background()

	want := []string{
		"Defeat Wolf01 at [Windward Reach](" + server.URL + "/db/zone/42)",
		"Defeat 3 [Dire Wolf](" + server.URL + "/db/creature/DireWolf) in Amrine Excavation",
		"Defeat Ghost in Shattered Obelisk",
		"Capture 2 Forts",
	}
	assert.Equal(t, want, service.BuildArtifactObjectives(ctx, "artifactsword"))

	// the second build is served from cache, negative lookups included
	assert.Equal(t, want, service.BuildArtifactObjectives(ctx, "ArtifactSword"))
	assert.Equal(t, 1, server.Hits("/db/data/objectivetasks.json"))
	assert.Equal(t, 1, server.Hits("/db/data/gamemodes.json"))
	assert.Equal(t, 1, server.Hits("/db/creature/wolf01.json"))
	assert.Equal(t, 1, server.Hits("/db/zone/42.json"))
	assert.Equal(t, 1, server.Hits("/db/creature/Ghost.json"))
}

func TestService_DefaultDatasetsFollowBaseURL(t *testing.T) {
	server := newFakeNWDB(t, map[string]string{
		"/db/data/objectivetasks.json": `[{"TaskID": "task_perk1_bow_a", "Type": "TaskGameEvent"}]`,
		"/db/data/gamemodes.json":      `[]`,
	})
	store := cache.NewMemoryCache()
	client := nwdb.NewClient(&nwdb.Config{BaseURL: server.URL}, store, logger.Discard())
	t.Cleanup(func() { client.Close() })
	service := NewService(client, store, DefaultConfig(), logger.Discard())

	assert.Equal(t, []string{"Capture the Fort"}, service.BuildArtifactObjectives(context.Background(), "bow"))
	assert.Equal(t, 1, server.Hits("/db/data/objectivetasks.json"))
}

func TestService_TasksKeepsOnlyPerkTasks(t *testing.T) {
	server := newFakeNWDB(t, map[string]string{
		"/db/data/objectivetasks.json": tasksDataset,
	})
	service := newTestService(t, server)

	tasks, err := service.Tasks(context.Background())
	require.NoError(t, err)
	assert.Len(t, tasks, 5)
	for _, task := range tasks {
		assert.True(t, task.IsPerkTask(), task.TaskID)
	}
}

func TestService_GameModesSkipsLocalizationKeys(t *testing.T) {
	server := newFakeNWDB(t, map[string]string{
		"/db/data/gamemodes.json": gameModesDataset,
	})
	service := newTestService(t, server)

	modes, err := service.GameModes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"dungeonamrine": "Amrine Excavation"}, modes)
}

func TestService_DatasetFailureYieldsEmpty(t *testing.T) {
	server := newFakeNWDB(t, map[string]string{})
	service := newTestService(t, server)

	got := service.BuildArtifactObjectives(context.Background(), "artifactsword")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestService_GameModeDatasetFailureDropsLocation(t *testing.T) {
	server := newFakeNWDB(t, map[string]string{
		"/db/data/objectivetasks.json": `[{"TaskID": "task_perk1_bow_a", "Type": "TaskKillContribution", "KillEnemyType": "Lynx", "GameModeID": "DungeonAmrine"}]`,
	})
	service := newTestService(t, server)

	assert.Equal(t, []string{"Defeat Lynx"}, service.BuildArtifactObjectives(context.Background(), "bow"))
}
