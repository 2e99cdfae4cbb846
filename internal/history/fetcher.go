package history

import (
	"context"
	"time"

	"github.com/zhalslar/portrayal-go/internal/logger"
	"github.com/zhalslar/portrayal-go/internal/onebot"
)

const (
	maxAttemptsPerPage = 3
	baseRetryDelay     = time.Second
)

// API is the one gateway action the fetcher needs; *onebot.Client
// satisfies it and tests supply fakes.
type API interface {
	GetGroupMsgHistory(ctx context.Context, groupID, messageSeq int64, count int, reverseOrder bool) ([]onebot.Message, error)
}

// Fetcher pages backward through group history until it has gathered
// enough of the target user's turns or runs out of rounds.
type Fetcher struct {
	API         API
	TargetCount int
	PageSize    int
	Timestamps  bool

	// sleep is swappable in tests; nil means real context-aware sleep.
	sleep func(ctx context.Context, d time.Duration) bool
}

// Fetch accumulates context turns for targetUserID, paging backward from
// the newest message. It never fails: exhausted retries, an empty page or
// a malformed page all end the loop, and whatever was gathered so far is
// returned along with the number of completed rounds.
func (f *Fetcher) Fetch(ctx context.Context, groupID, targetUserID int64, maxRounds int) ([]Turn, int) {
	sleep := f.sleep
	if sleep == nil {
		sleep = sleepWithContext
	}

	var (
		turns      []Turn
		rounds     int
		messageSeq int64
	)

	for len(turns) < f.TargetCount && rounds < maxRounds {
		page, ok := f.fetchPage(ctx, groupID, messageSeq, sleep)
		if !ok || len(page) == 0 {
			// Persistent failure and end of history are indistinguishable
			// here; both just stop the scan.
			logger.L.Info("history fetch stopped", "group_id", groupID, "rounds", rounds, "turns", len(turns))
			break
		}

		// Index 0 is the oldest boundary of a reverse-ordered page; it
		// becomes the cursor for the next, older page. A cursor that does
		// not move means the gateway broke its pagination contract.
		next := page[0].MessageID
		if next == 0 || (messageSeq != 0 && next == messageSeq) {
			logger.L.Warn("malformed history page, stopping", "group_id", groupID, "cursor", messageSeq)
			break
		}
		messageSeq = next

		turns = append(turns, BuildTurns(page, targetUserID, f.Timestamps)...)
		rounds++
	}

	return turns, rounds
}

// fetchPage issues one paged request, retrying transient failures with
// exponential backoff (1s, 2s). There is no delay after the final failed
// attempt. A false return means the page is lost for good and the whole
// fetch must stop, since the next cursor would have come from it.
func (f *Fetcher) fetchPage(ctx context.Context, groupID, messageSeq int64, sleep func(context.Context, time.Duration) bool) ([]onebot.Message, bool) {
	for attempt := 1; attempt <= maxAttemptsPerPage; attempt++ {
		page, err := f.API.GetGroupMsgHistory(ctx, groupID, messageSeq, f.PageSize, true)
		if err == nil {
			return page, true
		}

		if attempt < maxAttemptsPerPage {
			delay := baseRetryDelay << (attempt - 1)
			logger.L.Warn("history page fetch failed, retrying",
				"group_id", groupID, "attempt", attempt, "delay", delay.String(), "error", err)
			if !sleep(ctx, delay) {
				return nil, false
			}
		} else {
			logger.L.Error("history page fetch failed permanently", "group_id", groupID, "error", err)
		}
	}
	return nil, false
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
