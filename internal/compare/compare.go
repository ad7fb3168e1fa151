package compare

import "sort"

// State classifies one potentially-matched pair of source/target
// records. Every record of a content type lands in exactly one state.
type State string

const (
	StateOnlyInSource State = "ONLY_IN_SOURCE"
	StateOnlyInTarget State = "ONLY_IN_TARGET"
	StateDifferent    State = "DIFFERENT"
	StateIdentical    State = "IDENTICAL"
)

// Result is the comparison outcome for one record of a content type.
// Source is nil for ONLY_IN_TARGET; Target is nil for ONLY_IN_SOURCE.
type Result struct {
	ContentType string
	State       State
	Source      *Record
	Target      *Record
}

// DocumentID returns the identifier a caller should key the result by:
// the source side when present, otherwise the target side.
func (r Result) DocumentID() string {
	if r.Source != nil {
		return r.Source.DocumentID
	}
	if r.Target != nil {
		return r.Target.DocumentID
	}
	return ""
}

// Records classifies every record of a content type into one of the
// four states. Matching is by documentId (per locale), after applying
// the persisted identity mapping (source documentId -> target
// documentId). Matched pairs with equal digests are IDENTICAL even
// when surface fields differ in technical metadata.
//
// Pure apart from reading its inputs; safe to re-run and to cache by
// snapshot fingerprint.
func Records(contentType string, source, target []Record, mappings map[string]string) []Result {
	targetByKey := make(map[matchKey]*Record, len(target))
	for i := range target {
		rec := &target[i]
		targetByKey[matchKey{rec.DocumentID, rec.Locale}] = rec
	}

	matched := make(map[matchKey]bool, len(source))
	results := make([]Result, 0, len(source)+len(target))

	for i := range source {
		src := &source[i]
		docID := src.DocumentID
		if mapped, ok := mappings[docID]; ok {
			docID = mapped
		}
		key := matchKey{docID, src.Locale}

		dst, ok := targetByKey[key]
		if !ok {
			results = append(results, Result{ContentType: contentType, State: StateOnlyInSource, Source: src})
			continue
		}
		matched[key] = true

		state := StateDifferent
		if src.Hash == dst.Hash {
			state = StateIdentical
		}
		results = append(results, Result{ContentType: contentType, State: state, Source: src, Target: dst})
	}

	for i := range target {
		dst := &target[i]
		key := matchKey{dst.DocumentID, dst.Locale}
		if matched[key] {
			continue
		}
		results = append(results, Result{ContentType: contentType, State: StateOnlyInTarget, Target: dst})
	}

	sortResults(results)
	return results
}

// sortResults orders results deterministically so repeated comparisons
// of the same snapshots render identically.
func sortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].State != results[j].State {
			return results[i].State < results[j].State
		}
		return results[i].DocumentID() < results[j].DocumentID()
	})
}
