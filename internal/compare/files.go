package compare

import "sort"

// FilesContentType is the pseudo content type under which media
// library records are compared and scheduled.
const FilesContentType = "plugin::upload.file"

// Files classifies media records. The algorithm is the one used for
// entries with two additions:
//
//   - operator-recorded associations (source documentId -> target
//     documentId) match pairs the identifier heuristic would miss;
//   - unmatched pairs with equal content digests pair up as IDENTICAL,
//     since an equal digest means the same file metadata either way;
//   - documents on the exclusion list are never proposed for sync and
//     produce no result at all.
func Files(source, target []Record, associations map[string]string, excluded map[string]bool) []Result {
	src := make([]Record, 0, len(source))
	for _, rec := range source {
		if !excluded[rec.DocumentID] {
			src = append(src, rec)
		}
	}
	dst := make([]Record, 0, len(target))
	for _, rec := range target {
		if !excluded[rec.DocumentID] {
			dst = append(dst, rec)
		}
	}

	results := Records(FilesContentType, src, dst, associations)
	return pairByHash(results)
}

// pairByHash collapses an ONLY_IN_SOURCE and an ONLY_IN_TARGET record
// with the same digest into a single IDENTICAL result.
func pairByHash(results []Result) []Result {
	targetByHash := make(map[string]*Result)
	for i := range results {
		if results[i].State == StateOnlyInTarget {
			targetByHash[results[i].Target.Hash] = &results[i]
		}
	}

	out := make([]Result, 0, len(results))
	consumed := make(map[*Result]bool)
	for i := range results {
		r := results[i]
		if r.State == StateOnlyInSource {
			if match, ok := targetByHash[r.Source.Hash]; ok && !consumed[match] {
				consumed[match] = true
				out = append(out, Result{
					ContentType: r.ContentType,
					State:       StateIdentical,
					Source:      r.Source,
					Target:      match.Target,
				})
				continue
			}
		}
		if consumed[&results[i]] {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].State != out[j].State {
			return out[i].State < out[j].State
		}
		return out[i].DocumentID() < out[j].DocumentID()
	})
	return out
}
