// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import "github.com/danielhkuo/pollbase/models"

// Tally counts votes per option in one pass. Options without votes get 0;
// votes for ids outside options are ignored.
func Tally(options []models.PollOption, voteOptionIDs []string) ([]models.OptionResult, int) {
	freq := make(map[string]int, len(options))
	for _, id := range voteOptionIDs {
		freq[id]++
	}

	results := make([]models.OptionResult, len(options))
	total := 0
	for i, opt := range options {
		count := freq[opt.ID]
		results[i] = models.OptionResult{PollOption: opt, VoteCount: count}
		total += count
	}

	return results, total
}
