package helper

import (
	"sort"

	"ClinicTalk/internal/model"
)

// ConversationKey derives the single key of the symmetric doctor/patient
// conversation from the unordered participant pair.
func ConversationKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// SortMessages orders a transcript by timestamp ascending. The sort is
// stable so entries with equal timestamps keep their fetch order.
func SortMessages(msgs []model.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}

type TranscriptMerge struct {
	// Messages is the merged transcript: server truth plus any optimistic
	// entries the server has not stored yet.
	Messages []model.Message

	// NewFromCounterpart holds fetched messages that were not previously
	// known and were not authored by the local user.
	NewFromCounterpart []model.Message
}

// MergeTranscript reconciles the held transcript with a full refetch. The
// fetched sequence is authoritative; local pending entries survive only
// until the server echoes their correlation id. Applying the same fetch
// twice yields the same transcript and no new counterpart messages.
func MergeTranscript(current, fetched []model.Message, localUserID string) TranscriptMerge {
	knownIDs := make(map[string]struct{}, len(current))
	for _, msg := range current {
		if msg.ID != "" {
			knownIDs[msg.ID] = struct{}{}
		}
	}

	fetchedCorrelations := make(map[string]struct{}, len(fetched))
	for _, msg := range fetched {
		if msg.CorrelationID != "" {
			fetchedCorrelations[msg.CorrelationID] = struct{}{}
		}
	}

	merged := make([]model.Message, 0, len(fetched)+1)
	merged = append(merged, fetched...)

	for _, msg := range current {
		if !msg.Pending || msg.ID != "" {
			continue
		}
		if _, echoed := fetchedCorrelations[msg.CorrelationID]; echoed {
			continue
		}
		merged = append(merged, msg)
	}

	SortMessages(merged)

	var fresh []model.Message
	for _, msg := range fetched {
		if msg.ID == "" || msg.SenderID == localUserID {
			continue
		}
		if _, known := knownIDs[msg.ID]; known {
			continue
		}
		fresh = append(fresh, msg)
	}

	return TranscriptMerge{
		Messages:           merged,
		NewFromCounterpart: fresh,
	}
}
