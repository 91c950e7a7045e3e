package models

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// SignalTag names a condition bucket ("cluster") a SKU may fall into.
type SignalTag string

const (
	SignalOOSNow       SignalTag = "OOS_NOW"
	SignalOOSSoon      SignalTag = "OOS_SOON"
	SignalHighDRR      SignalTag = "HIGH_DRR"
	SignalLowCTR       SignalTag = "LOW_CTR"
	SignalLowCR        SignalTag = "LOW_CR"
	SignalLowBuyout    SignalTag = "LOW_BUYOUT"
	SignalOverstock    SignalTag = "OVERSTOCK"
	SignalAboveMarket  SignalTag = "ABOVE_MARKET"
	SignalFallingSales SignalTag = "FALLING_SALES"
)

// AllSignalTags lists every tag in rule evaluation order.
var AllSignalTags = []SignalTag{
	SignalOOSNow,
	SignalOOSSoon,
	SignalHighDRR,
	SignalLowCTR,
	SignalLowCR,
	SignalLowBuyout,
	SignalOverstock,
	SignalAboveMarket,
	SignalFallingSales,
}

var signalPriorities = map[SignalTag]int{
	SignalOOSNow:       1,
	SignalOOSSoon:      2,
	SignalHighDRR:      3,
	SignalLowCR:        4,
	SignalLowCTR:       5,
	SignalLowBuyout:    6,
	SignalFallingSales: 7,
	SignalOverstock:    8,
	SignalAboveMarket:  9,
}

// NoPriority sorts untagged SKUs after every tagged one.
const NoPriority = math.MaxInt32

// Priority returns the display priority of the tag (1 is most urgent).
func (t SignalTag) Priority() int {
	if p, ok := signalPriorities[t]; ok {
		return p
	}
	return NoPriority
}

// Valid reports whether t is one of the known tags.
func (t SignalTag) Valid() bool {
	_, ok := signalPriorities[t]
	return ok
}

// ParseSignalTag parses a tag name case-insensitively.
func ParseSignalTag(s string) (SignalTag, error) {
	tag := SignalTag(strings.ToUpper(strings.TrimSpace(s)))
	if !tag.Valid() {
		return "", fmt.Errorf("unknown signal tag %q", s)
	}
	return tag, nil
}

// TagSet is the set of signals a SKU carries.
type TagSet map[SignalTag]struct{}

// NewTagSet builds a set from the given tags.
func NewTagSet(tags ...SignalTag) TagSet {
	set := make(TagSet, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}

func (s TagSet) Add(t SignalTag) {
	s[t] = struct{}{}
}

func (s TagSet) Has(t SignalTag) bool {
	_, ok := s[t]
	return ok
}

// Sorted returns the tags ordered by display priority.
func (s TagSet) Sorted() []SignalTag {
	out := make([]SignalTag, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Priority() < out[j].Priority()
	})
	return out
}

// MinPriority returns the most urgent priority in the set, or NoPriority when empty.
func (s TagSet) MinPriority() int {
	min := NoPriority
	for t := range s {
		if p := t.Priority(); p < min {
			min = p
		}
	}
	return min
}

// MarshalJSON encodes the set as a priority-ordered list.
func (s TagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes a list of tag names, rejecting unknown tags.
func (s *TagSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	set := make(TagSet, len(names))
	for _, name := range names {
		tag, err := ParseSignalTag(name)
		if err != nil {
			return err
		}
		set[tag] = struct{}{}
	}
	*s = set
	return nil
}

// ClusterCounts maps each tag to the number of SKUs carrying it.
type ClusterCounts map[SignalTag]int

// ClassifiedSKU pairs a snapshot with its reference data and computed tags.
type ClassifiedSKU struct {
	Snapshot  MetricSnapshot `json:"snapshot"`
	Reference SKUReference   `json:"reference"`
	Tags      TagSet         `json:"tags"`
}
