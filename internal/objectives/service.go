package objectives

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aeternum-guides/nwdb/internal/cache"
	"github.com/aeternum-guides/nwdb/internal/nwdb"
)

// Source is what the service needs from the database client
type Source interface {
	GetEntity(ctx context.Context, entityType, entityID string) (*nwdb.Entity, error)
	EntityURL(entityType, entityID string) string
	FetchDataset(ctx context.Context, location string) (json.RawMessage, error)
}

// Config holds configuration options for the objectives service
type Config struct {
	TasksURL       string
	GameModesURL   string
	RefTTL         time.Duration
	NegativeRefTTL time.Duration
	DatasetTTL     time.Duration
}

// DefaultConfig returns the service defaults; dataset paths resolve against the client base URL
func DefaultConfig() *Config {
	return &Config{
		TasksURL:       "/db/data/objectivetasks.json",
		GameModesURL:   "/db/data/gamemodes.json",
		RefTTL:         24 * time.Hour,
		NegativeRefTTL: 15 * time.Minute,
		DatasetTTL:     24 * time.Hour,
	}
}

// Service builds objective sentences from the reference datasets, resolving
// creature, zone and game mode ids through cached lookups.
type Service struct {
	source Source
	cache  cache.Cache
	config Config
	logger *logrus.Logger

	creature Lookup
	zone     Lookup
	gamemode Lookup
}

// NewService creates a service; zero-valued config fields take DefaultConfig values
func NewService(source Source, store cache.Cache, config *Config, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	cfg := *DefaultConfig()
	if config != nil {
		if config.TasksURL != "" {
			cfg.TasksURL = config.TasksURL
		}
		if config.GameModesURL != "" {
			cfg.GameModesURL = config.GameModesURL
		}
		if config.RefTTL > 0 {
			cfg.RefTTL = config.RefTTL
		}
		if config.NegativeRefTTL > 0 {
			cfg.NegativeRefTTL = config.NegativeRefTTL
		}
		if config.DatasetTTL > 0 {
			cfg.DatasetTTL = config.DatasetTTL
		}
	}

	s := &Service{
		source: source,
		cache:  store,
		config: cfg,
		logger: logger,
	}
	s.creature = Cached(store, cache.RefCreature, s.entityLookup("creature"), cfg.RefTTL, cfg.NegativeRefTTL, logger)
	s.zone = Cached(store, cache.RefZone, s.entityLookup("zone"), cfg.RefTTL, cfg.NegativeRefTTL, logger)
	s.gamemode = Cached(store, cache.RefGameMode, s.lookupGameMode, cfg.RefTTL, cfg.NegativeRefTTL, logger)
	return s
}

// BuildArtifactObjectives returns the objective sentences for an artifact.
// Any failure to load the task dataset yields an empty list.
func (s *Service) BuildArtifactObjectives(ctx context.Context, itemID string) []string {
	tasks, err := s.Tasks(ctx)
	if err != nil {
		s.logger.Debugf("Objectives for %s degraded to empty result: %v", itemID, err)
		return []string{}
	}
	return BuildArtifactObjectives(ctx, itemID, tasks, s.creature, s.zone, s.gamemode)
}

// Tasks returns the perk tasks of the objective-task dataset
func (s *Service) Tasks(ctx context.Context) ([]Task, error) {
	key := cache.DatasetKey("objectivetasks")
	var tasks []Task
	found, _, err := cache.GetJSON(ctx, s.cache, key, &tasks)
	if err != nil {
		s.logger.Warnf("Dataset cache read failed for %s, refetching: %v", key, err)
	}
	if found {
		return tasks, nil
	}

	raw, err := s.source.FetchDataset(ctx, s.config.TasksURL)
	if err != nil {
		return nil, err
	}
	var all []Task
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("failed to parse objective tasks: %w", err)
	}

	tasks = make([]Task, 0, len(all))
	for _, task := range all {
		if task.IsPerkTask() {
			tasks = append(tasks, task)
		}
	}
	s.logger.Debugf("Loaded %d perk tasks out of %d objective tasks", len(tasks), len(all))

	if err := s.cache.Set(ctx, key, tasks, s.config.DatasetTTL); err != nil {
		s.logger.Warnf("Failed to cache %s: %v", key, err)
	}
	return tasks, nil
}

type gameModeRecord struct {
	GameModeID  nwdb.FlexString `json:"GameModeID"`
	DisplayName string          `json:"DisplayName"`
	Name        string          `json:"name"`
}

// GameModes maps lower-cased game mode ids to display names. Modes whose
// name is missing or still a localization key ("@...") are left out.
func (s *Service) GameModes(ctx context.Context) (map[string]string, error) {
	key := cache.DatasetKey("gamemodes")
	var modes map[string]string
	found, _, err := cache.GetJSON(ctx, s.cache, key, &modes)
	if err != nil {
		s.logger.Warnf("Dataset cache read failed for %s, refetching: %v", key, err)
	}
	if found {
		return modes, nil
	}

	raw, err := s.source.FetchDataset(ctx, s.config.GameModesURL)
	if err != nil {
		return nil, err
	}
	var records []gameModeRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to parse game modes: %w", err)
	}

	modes = make(map[string]string, len(records))
	for _, r := range records {
		id := strings.ToLower(strings.TrimSpace(r.GameModeID.String()))
		name := strings.TrimSpace(r.Name)
		if name == "" {
			name = strings.TrimSpace(r.DisplayName)
		}
		if id == "" || !displayable(name) {
			continue
		}
		modes[id] = name
	}

	if err := s.cache.Set(ctx, key, modes, s.config.DatasetTTL); err != nil {
		s.logger.Warnf("Failed to cache %s: %v", key, err)
	}
	return modes, nil
}

func (s *Service) entityLookup(entityType string) Lookup {
	return func(ctx context.Context, id string) (*NameLink, error) {
		entity, err := s.source.GetEntity(ctx, entityType, id)
		if err != nil {
			if nwdb.IsNotFound(err) {
				return nil, ErrNotFound
			}
			s.logger.Debugf("Lookup of %s %s failed: %v", entityType, id, err)
			return nil, err
		}
		if !displayable(entity.Name) {
			return nil, ErrNotFound
		}
		link := s.source.EntityURL(entityType, id)
		return &NameLink{Name: strings.TrimSpace(entity.Name), Link: &link}, nil
	}
}

func (s *Service) lookupGameMode(ctx context.Context, id string) (*NameLink, error) {
	modes, err := s.GameModes(ctx)
	if err != nil {
		return nil, err
	}
	name, ok := modes[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return nil, ErrNotFound
	}
	return &NameLink{Name: name}, nil
}

func displayable(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && !strings.HasPrefix(name, "@")
}
