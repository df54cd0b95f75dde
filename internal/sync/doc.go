// Package sync reconciles a local tree of Markdown documents with a remote
// collection of wiki pages.
//
// # Classification
//
// Each pair is compared side by side against the entry archived at the
// last successful sync. Local and remote content use different markup, so
// the local hash is only ever compared to the archived local hash and the
// remote hash to the archived remote hash:
//
//	local  remote  archive   result
//	-      -       any       SKIP
//	yes    -       none      CREATE_REMOTE
//	-      yes     none      CREATE_LOCAL
//	yes    yes     none      CONFLICT
//	-      yes     yes       CONFLICT if remote changed, else DELETE_REMOTE
//	yes    -       yes       CONFLICT if local changed, else DELETE_LOCAL
//	yes    yes     yes       PUSH, PULL, CONFLICT or SKIP by which side changed
//
// The profile direction then downgrades actions that would write to a
// side the run may not touch.
//
// # Conflicts
//
// Conflicts are settled by a Resolver chosen with NewResolver:
//   - StrategyInteractive: merge cleanly when possible, otherwise ask
//   - StrategyMarkers: merge, leaving conflict markers in the local file
//   - StrategyLocalWins and StrategyRemoteWins: pick one side
//
// A file left with markers is flagged in the state and skipped until the
// flag is cleared.
//
// # Running
//
//	engine, err := sync.New(sync.Options{
//	    Profile:    "docs",
//	    SourceRoot: "./docs",
//	}, sync.Deps{
//	    Pairs:     m,
//	    State:     state.NewStore(".docsync"),
//	    Remote:    client,
//	    Converter: convert.TracWiki{},
//	    Resolver:  resolver,
//	})
//	if err != nil {
//	    return err
//	}
//	report := engine.Run(ctx)
//
// Deletions are detected but never propagated.
package sync
