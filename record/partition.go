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

package record

import (
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// NoLeader is the leader id of a partition without a leader.
const NoLeader int32 = -1

// LeaderRecoveryState tells whether a partition leader was elected uncleanly.
type LeaderRecoveryState int8

const (
	// Recovered is the normal state.
	Recovered LeaderRecoveryState = 0
	// Recovering follows an unclean leader election.
	Recovering LeaderRecoveryState = 1
)

// PartitionRegistration is the replica assignment and leadership of a partition.
type PartitionRegistration struct {
	Replicas            []int32             `cbor:"1,keyasint"`
	ISR                 []int32             `cbor:"2,keyasint"`
	AddingReplicas      []int32             `cbor:"3,keyasint,omitempty"`
	RemovingReplicas    []int32             `cbor:"4,keyasint,omitempty"`
	Leader              int32               `cbor:"5,keyasint"`
	LeaderEpoch         int32               `cbor:"6,keyasint"`
	PartitionEpoch      int32               `cbor:"7,keyasint"`
	LeaderRecoveryState LeaderRecoveryState `cbor:"8,keyasint"`
}

// Validate checks the registration invariants: a set leader is a replica and
// every in-sync replica is a replica.
func (p PartitionRegistration) Validate() error {
	if len(p.Replicas) == 0 {
		return fmt.Errorf("partition has no replicas")
	}

	replicas := mapset.NewThreadUnsafeSet(p.Replicas...)
	if replicas.Cardinality() != len(p.Replicas) {
		return fmt.Errorf("replicas %v contain duplicates", p.Replicas)
	}

	if p.Leader >= 0 && !replicas.Contains(p.Leader) {
		return fmt.Errorf("leader %d is not a replica of %v", p.Leader, p.Replicas)
	}

	if isr := mapset.NewThreadUnsafeSet(p.ISR...); !isr.IsSubset(replicas) {
		return fmt.Errorf("isr %v is not a subset of replicas %v", p.ISR, p.Replicas)
	}

	if p.LeaderRecoveryState != Recovered && p.LeaderRecoveryState != Recovering {
		return fmt.Errorf("unknown leader recovery state %d", p.LeaderRecoveryState)
	}
	return nil
}

// HasLeader reports whether a leader is elected.
func (p PartitionRegistration) HasLeader() bool {
	return p.Leader >= 0
}

// Equal reports whether both registrations describe the same partition state.
func (p PartitionRegistration) Equal(other PartitionRegistration) bool {
	return p.SameAssignment(other) && p.SameState(other)
}

// SameAssignment reports whether both registrations carry the same replica assignment.
func (p PartitionRegistration) SameAssignment(other PartitionRegistration) bool {
	return slices.Equal(p.Replicas, other.Replicas) &&
		slices.Equal(p.AddingReplicas, other.AddingReplicas) &&
		slices.Equal(p.RemovingReplicas, other.RemovingReplicas)
}

// SameState reports whether both registrations carry the same leadership and ISR.
func (p PartitionRegistration) SameState(other PartitionRegistration) bool {
	return p.Leader == other.Leader &&
		p.LeaderEpoch == other.LeaderEpoch &&
		p.PartitionEpoch == other.PartitionEpoch &&
		p.LeaderRecoveryState == other.LeaderRecoveryState &&
		mapset.NewThreadUnsafeSet(p.ISR...).Equal(mapset.NewThreadUnsafeSet(other.ISR...))
}

// Clone returns a deep copy.
func (p PartitionRegistration) Clone() PartitionRegistration {
	p.Replicas = slices.Clone(p.Replicas)
	p.ISR = slices.Clone(p.ISR)
	p.AddingReplicas = slices.Clone(p.AddingReplicas)
	p.RemovingReplicas = slices.Clone(p.RemovingReplicas)
	return p
}

// NewPartitionRegistration builds the registration of a freshly assigned
// partition: the first replica leads and every replica is in sync.
func NewPartitionRegistration(replicas ...int32) PartitionRegistration {
	leader := NoLeader
	if len(replicas) > 0 {
		leader = replicas[0]
	}
	return PartitionRegistration{
		Replicas: slices.Clone(replicas),
		ISR:      slices.Clone(replicas),
		Leader:   leader,
	}
}
