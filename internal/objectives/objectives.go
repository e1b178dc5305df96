package objectives

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/aeternum-guides/nwdb/internal/nwdb"
)

// Task types that produce sentences
const (
	TaskKillContribution = "TaskKillContribution"
	TaskGameEvent        = "TaskGameEvent"
)

// ErrNotFound is returned by a Lookup when the id explicitly resolves to nothing.
// Any other error means the lookup could not be answered.
var ErrNotFound = errors.New("not found")

var perkTaskPattern = regexp.MustCompile(`(?i)^task_perk\d+_`)

// Task is one objective-task record. Only the fields sentences need are kept.
type Task struct {
	TaskID        nwdb.FlexString `json:"TaskID"`
	Type          string          `json:"Type"`
	KillEnemyType nwdb.FlexString `json:"KillEnemyType,omitempty"`
	TargetQty     nwdb.FlexInt    `json:"TargetQty,omitempty"`
	POITag        nwdb.FlexString `json:"POITag,omitempty"`
	TerritoryID   nwdb.FlexInt    `json:"TerritoryID,omitempty"`
	GameModeID    nwdb.FlexString `json:"GameModeID,omitempty"`
}

// IsPerkTask reports whether the task id follows the task_perk<N>_ naming
func (t Task) IsPerkTask() bool {
	return perkTaskPattern.MatchString(t.TaskID.String())
}

// NameLink is a resolved cross-reference
type NameLink struct {
	Name string  `json:"name"`
	Link *string `json:"link,omitempty"`
}

// Markdown renders [name](link), or the bare name without a link
func (n NameLink) Markdown() string {
	if n.Link == nil || *n.Link == "" {
		return n.Name
	}
	return fmt.Sprintf("[%s](%s)", n.Name, *n.Link)
}

// Lookup resolves an id to a display name
type Lookup func(ctx context.Context, id string) (*NameLink, error)

// resolve treats a nil lookup, a blank id and a nameless result as not found
func resolve(ctx context.Context, lookup Lookup, id string) (*NameLink, error) {
	id = strings.TrimSpace(id)
	if lookup == nil || id == "" {
		return nil, ErrNotFound
	}
	result, err := lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if result == nil || strings.TrimSpace(result.Name) == "" {
		return nil, ErrNotFound
	}
	return result, nil
}

// BuildArtifactObjectives turns the perk tasks of an artifact into sentences.
// Tasks are selected by the task_perk<N>_ prefix and the item id, ordered by
// TaskID, and rendered by type; tasks that cannot be rendered are left out.
func BuildArtifactObjectives(ctx context.Context, itemID string, tasks []Task, creature, zone, gamemode Lookup) []string {
	sentences := []string{}
	id := strings.ToLower(strings.TrimSpace(itemID))
	if id == "" {
		return sentences
	}

	var selected []Task
	for _, task := range tasks {
		if task.IsPerkTask() && strings.Contains(strings.ToLower(task.TaskID.String()), id) {
			selected = append(selected, task)
		}
	}
	slices.SortStableFunc(selected, func(a, b Task) int {
		return strings.Compare(a.TaskID.String(), b.TaskID.String())
	})

	for _, task := range selected {
		var sentence string
		switch {
		case strings.EqualFold(task.Type, TaskKillContribution):
			sentence = killSentence(ctx, task, creature, zone, gamemode)
		case strings.EqualFold(task.Type, TaskGameEvent):
			sentence = captureSentence(task)
		}
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
	}
	return sentences
}

func killSentence(ctx context.Context, task Task, creature, zone, gamemode Lookup) string {
	enemy := strings.TrimSpace(task.KillEnemyType.String())
	target := PrettifyIdentifier(enemy)
	if ref, err := resolve(ctx, creature, enemy); err == nil {
		target = ref.Markdown()
	}
	if target == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString("Defeat ")
	if task.TargetQty > 1 {
		fmt.Fprintf(&b, "%d ", int(task.TargetQty))
	}
	b.WriteString(target)
	b.WriteString(location(ctx, task, zone, gamemode))
	return b.String()
}

// location yields " at <zone>", " in <game mode>" or nothing
func location(ctx context.Context, task Task, zone, gamemode Lookup) string {
	if zoneID := ExtractZoneID(task.POITag.String(), int(task.TerritoryID)); zoneID != "" {
		if ref, err := resolve(ctx, zone, zoneID); err == nil {
			return " at " + ref.Markdown()
		}
	}

	modeID := strings.TrimSpace(task.GameModeID.String())
	if modeID == "" {
		return ""
	}
	ref, err := resolve(ctx, gamemode, modeID)
	switch {
	case err == nil:
		return " in " + ref.Markdown()
	case errors.Is(err, ErrNotFound):
		return " in " + GameModeFallbackLabel(modeID)
	default:
		return ""
	}
}

func captureSentence(task Task) string {
	if task.TargetQty > 1 {
		return fmt.Sprintf("Capture %d Forts", int(task.TargetQty))
	}
	return "Capture the Fort"
}
