// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package volume

import (
	"context"
	"errors"
	"iter"

	"github.com/majewsky/gg/option"
)

var errListingConsumed = errors.New("volume listing can only be iterated once")

// Fetches a single page of a listing.
type pageFetcher func(ctx context.Context, params ListParams) ([]RemoteVolume, error)

// Iterate over all volumes of a listing, page by page. The marker of each
// follow-up page is the id of the last volume of the previous page. If a
// limit is given, at most that many volumes are yielded over all pages.
// The sequence can be iterated only once.
func paginate(ctx context.Context, fetch pageFetcher, params ListParams) iter.Seq2[RemoteVolume, error] {
	consumed := false
	return func(yield func(RemoteVolume, error) bool) {
		if consumed {
			yield(nil, errListingConsumed)
			return
		}
		consumed = true
		params := params.clone()
		for {
			page, err := fetch(ctx, params)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(page) == 0 {
				return
			}
			remaining, limited := params.Limit.Unpack()
			if limited && len(page) > remaining {
				page = page[:remaining]
			}
			for _, v := range page {
				if !yield(v, nil) {
					return
				}
			}
			lastID := page[len(page)-1].ID()
			if lastID == "" {
				yield(nil, &Error{Kind: ErrPaginationProtocol, Detail: "last volume of the page has no id"})
				return
			}
			if limited {
				remaining -= len(page)
				if remaining <= 0 {
					return
				}
				params.Limit = option.Some(remaining)
			}
			params.Marker = option.Some(lastID)
		}
	}
}
