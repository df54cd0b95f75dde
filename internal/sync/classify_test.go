package sync

import (
	"testing"

	"github.com/klauern/docsync/internal/model"
	"github.com/klauern/docsync/internal/state"
)

func TestClassify(t *testing.T) {
	l0, l1 := ptr("L0"), ptr("L1")
	r0, r1 := ptr("R0"), ptr("R1")
	archived := &state.Entry{RemoteName: "Docs/a", LocalHash: l0, RemoteHash: r0}

	tests := map[string]struct {
		cur   Sides
		entry *state.Entry
		want  model.SyncAction
	}{
		"both absent":                   {cur: Sides{}, entry: archived, want: model.ActionSkip},
		"both absent no archive":        {cur: Sides{}, want: model.ActionSkip},
		"new local":                     {cur: Sides{LocalHash: l0}, want: model.ActionCreateRemote},
		"new remote":                    {cur: Sides{RemoteHash: r0}, want: model.ActionCreateLocal},
		"both new":                      {cur: Sides{LocalHash: l0, RemoteHash: r0}, want: model.ActionConflict},
		"unchanged":                     {cur: Sides{LocalHash: l0, RemoteHash: r0}, entry: archived, want: model.ActionSkip},
		"local changed":                 {cur: Sides{LocalHash: l1, RemoteHash: r0}, entry: archived, want: model.ActionPush},
		"remote changed":                {cur: Sides{LocalHash: l0, RemoteHash: r1}, entry: archived, want: model.ActionPull},
		"both changed":                  {cur: Sides{LocalHash: l1, RemoteHash: r1}, entry: archived, want: model.ActionConflict},
		"local deleted":                 {cur: Sides{RemoteHash: r0}, entry: archived, want: model.ActionDeleteRemote},
		"local deleted remote changed":  {cur: Sides{RemoteHash: r1}, entry: archived, want: model.ActionConflict},
		"remote deleted":                {cur: Sides{LocalHash: l0}, entry: archived, want: model.ActionDeleteLocal},
		"remote deleted local changed":  {cur: Sides{LocalHash: l1}, entry: archived, want: model.ActionConflict},
		"hashless archive both present": {cur: Sides{LocalHash: l0, RemoteHash: r0}, entry: &state.Entry{}, want: model.ActionConflict},
		"hashless archive local only":   {cur: Sides{LocalHash: l0}, entry: &state.Entry{RemoteName: "Docs/a"}, want: model.ActionCreateRemote},
		"hashless archive remote only":  {cur: Sides{RemoteHash: r0}, entry: &state.Entry{RemoteName: "Docs/a"}, want: model.ActionCreateLocal},
		"half archive local only":       {cur: Sides{LocalHash: l1}, entry: &state.Entry{LocalHash: l0}, want: model.ActionConflict},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := Classify(tt.cur, tt.entry); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterByDirection(t *testing.T) {
	tests := map[string]struct {
		action    model.SyncAction
		direction model.Direction
		want      model.SyncAction
	}{
		"push keeps push":           {model.ActionPush, model.DirectionPush, model.ActionPush},
		"push drops pull":           {model.ActionPull, model.DirectionPush, model.ActionSkip},
		"push drops create local":   {model.ActionCreateLocal, model.DirectionPush, model.ActionSkip},
		"push keeps conflict":       {model.ActionConflict, model.DirectionPush, model.ActionConflict},
		"pull drops create remote":  {model.ActionCreateRemote, model.DirectionPull, model.ActionSkip},
		"pull drops delete remote":  {model.ActionDeleteRemote, model.DirectionPull, model.ActionSkip},
		"pull keeps pull":           {model.ActionPull, model.DirectionPull, model.ActionPull},
		"bidirectional keeps all":   {model.ActionDeleteLocal, model.DirectionBidirectional, model.ActionDeleteLocal},
		"bidirectional keeps skips": {model.ActionSkip, model.DirectionBidirectional, model.ActionSkip},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := FilterByDirection(tt.action, tt.direction); got != tt.want {
				t.Errorf("FilterByDirection(%v, %v) = %v, want %v", tt.action, tt.direction, got, tt.want)
			}
		})
	}
}
