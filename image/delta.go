// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package image

import (
	"github.com/google/uuid"

	"github.com/zpllz/kafka/record"
)

// Delta is an ordered list of records to replay on an image.
type Delta struct {
	records []record.Record
}

// NewDelta creates a Delta out of records
func NewDelta(records ...record.Record) Delta {
	return Delta{records: append([]record.Record(nil), records...)}
}

// Records returns the records of the delta.
func (d Delta) Records() []record.Record {
	return append([]record.Record(nil), d.records...)
}

// IsEmpty reports whether the delta carries no record.
func (d Delta) IsEmpty() bool {
	return len(d.records) == 0
}

// TopicIDs returns the ids of the topics the delta touches, in the order they
// first appear.
func (d Delta) TopicIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0)
	add := func(id uuid.UUID) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, r := range d.records {
		switch r.Kind {
		case record.TopicKind:
			add(r.Topic.TopicID)
		case record.PartitionKind:
			add(r.Partition.TopicID)
		case record.RemoveTopicKind:
			add(r.RemoveTopic.TopicID)
		}
	}
	return ids
}

// ConfigResources returns the config resources the delta touches, in the
// order they first appear.
func (d Delta) ConfigResources() []record.ConfigResource {
	seen := make(map[record.ConfigResource]struct{})
	resources := make([]record.ConfigResource, 0)
	for _, r := range d.records {
		if r.Kind != record.ConfigKind {
			continue
		}
		if _, ok := seen[r.Config.Resource]; ok {
			continue
		}
		seen[r.Config.Resource] = struct{}{}
		resources = append(resources, r.Config.Resource)
	}
	return resources
}

// TouchesProducerID reports whether the delta moves the producer id boundary.
func (d Delta) TouchesProducerID() bool {
	for _, r := range d.records {
		if r.Kind == record.ProducerIDKind {
			return true
		}
	}
	return false
}
