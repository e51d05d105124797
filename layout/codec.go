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

package layout

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	gerrors "github.com/zpllz/kafka/errors"
	"github.com/zpllz/kafka/record"
)

// ControllerRegistration is the payload of ControllerPath. A registration
// written by a legacy controller carries no QuorumControllerEpoch.
type ControllerRegistration struct {
	Version               int    `json:"version"`
	BrokerID              int32  `json:"brokerid"`
	Timestamp             string `json:"timestamp"`
	QuorumControllerEpoch *int32 `json:"kraftControllerEpoch,omitempty"`
}

// NewQuorumControllerRegistration builds the registration a quorum-log controller writes.
func NewQuorumControllerRegistration(controllerID, epoch int32, nowMs int64) ControllerRegistration {
	return ControllerRegistration{
		Version:               2,
		BrokerID:              controllerID,
		Timestamp:             strconv.FormatInt(nowMs, 10),
		QuorumControllerEpoch: &epoch,
	}
}

// IsQuorumController reports whether the registration was written by a quorum-log controller.
func (c ControllerRegistration) IsQuorumController() bool {
	return c.QuorumControllerEpoch != nil && *c.QuorumControllerEpoch >= 0
}

// EncodeController serializes a controller registration.
func EncodeController(registration ControllerRegistration) ([]byte, error) {
	return json.Marshal(registration)
}

// DecodeController parses a controller registration.
func DecodeController(data []byte) (ControllerRegistration, error) {
	var registration ControllerRegistration
	if err := json.Unmarshal(data, &registration); err != nil {
		return ControllerRegistration{}, malformed(ControllerPath, err)
	}
	return registration, nil
}

// EncodeControllerEpoch serializes the controller epoch counter.
func EncodeControllerEpoch(epoch int32) []byte {
	return []byte(strconv.Itoa(int(epoch)))
}

// DecodeControllerEpoch parses the controller epoch counter.
func DecodeControllerEpoch(data []byte) (int32, error) {
	epoch, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return 0, malformed(ControllerEpochPath, err)
	}
	return int32(epoch), nil
}

// BrokerRegistration is the subset of a broker registration the migration reads.
type BrokerRegistration struct {
	Version   int      `json:"version"`
	Host      string   `json:"host"`
	Port      int      `json:"port"`
	Endpoints []string `json:"endpoints"`
	Rack      *string  `json:"rack,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// EncodeBroker serializes a broker registration.
func EncodeBroker(registration BrokerRegistration) ([]byte, error) {
	return json.Marshal(registration)
}

// DecodeBroker parses a broker registration.
func DecodeBroker(path string, data []byte) (BrokerRegistration, error) {
	var registration BrokerRegistration
	if err := json.Unmarshal(data, &registration); err != nil {
		return BrokerRegistration{}, malformed(path, err)
	}
	return registration, nil
}

type topicAssignment struct {
	Version          int                `json:"version"`
	TopicID          string             `json:"topic_id,omitempty"`
	Partitions       map[string][]int32 `json:"partitions"`
	AddingReplicas   map[string][]int32 `json:"adding_replicas"`
	RemovingReplicas map[string][]int32 `json:"removing_replicas"`
}

// Assignment is the replica assignment of one partition as kept in the topic node.
type Assignment struct {
	Replicas         []int32
	AddingReplicas   []int32
	RemovingReplicas []int32
}

// TopicAssignment is the decoded payload of a topic node.
type TopicAssignment struct {
	TopicID    uuid.UUID
	Partitions map[int32]Assignment
}

// EncodeTopic serializes the assignment of a topic out of its partition registrations.
func EncodeTopic(topicID uuid.UUID, partitions map[int32]record.PartitionRegistration) ([]byte, error) {
	assignment := topicAssignment{
		Version:          3,
		TopicID:          topicID.String(),
		Partitions:       make(map[string][]int32, len(partitions)),
		AddingReplicas:   make(map[string][]int32),
		RemovingReplicas: make(map[string][]int32),
	}

	for partition, registration := range partitions {
		key := strconv.Itoa(int(partition))
		assignment.Partitions[key] = nonNil(registration.Replicas)
		if len(registration.AddingReplicas) > 0 {
			assignment.AddingReplicas[key] = registration.AddingReplicas
		}
		if len(registration.RemovingReplicas) > 0 {
			assignment.RemovingReplicas[key] = registration.RemovingReplicas
		}
	}
	return json.Marshal(assignment)
}

// DecodeTopic parses a topic node. Assignments written before topic ids
// existed decode with uuid.Nil.
func DecodeTopic(path string, data []byte) (TopicAssignment, error) {
	var raw topicAssignment
	if err := json.Unmarshal(data, &raw); err != nil {
		return TopicAssignment{}, malformed(path, err)
	}

	decoded := TopicAssignment{Partitions: make(map[int32]Assignment, len(raw.Partitions))}
	if raw.TopicID != "" {
		topicID, err := uuid.Parse(raw.TopicID)
		if err != nil {
			return TopicAssignment{}, malformed(path, err)
		}
		decoded.TopicID = topicID
	}

	for key, replicas := range raw.Partitions {
		partition, ok := ParseID(key)
		if !ok {
			return TopicAssignment{}, malformed(path, fmt.Errorf("invalid partition id %q", key))
		}
		decoded.Partitions[partition] = Assignment{
			Replicas:         replicas,
			AddingReplicas:   raw.AddingReplicas[key],
			RemovingReplicas: raw.RemovingReplicas[key],
		}
	}
	return decoded, nil
}

type partitionState struct {
	Version             int     `json:"version"`
	ControllerEpoch     int32   `json:"controller_epoch"`
	Leader              int32   `json:"leader"`
	LeaderEpoch         int32   `json:"leader_epoch"`
	ISR                 []int32 `json:"isr"`
	LeaderRecoveryState int8    `json:"leader_recovery_state"`
	PartitionEpoch      int32   `json:"partition_epoch"`
}

// EncodePartitionState serializes the leadership half of a registration,
// stamped with the controller epoch of the writer.
func EncodePartitionState(registration record.PartitionRegistration, controllerEpoch int32) ([]byte, error) {
	return json.Marshal(partitionState{
		Version:             1,
		ControllerEpoch:     controllerEpoch,
		Leader:              registration.Leader,
		LeaderEpoch:         registration.LeaderEpoch,
		ISR:                 nonNil(registration.ISR),
		LeaderRecoveryState: int8(registration.LeaderRecoveryState),
		PartitionEpoch:      registration.PartitionEpoch,
	})
}

// DecodePartitionState parses a partition state node and merges it with the
// assignment read from the topic node.
func DecodePartitionState(path string, data []byte, assignment Assignment) (record.PartitionRegistration, error) {
	var raw partitionState
	if err := json.Unmarshal(data, &raw); err != nil {
		return record.PartitionRegistration{}, malformed(path, err)
	}

	return record.PartitionRegistration{
		Replicas:            assignment.Replicas,
		ISR:                 raw.ISR,
		AddingReplicas:      assignment.AddingReplicas,
		RemovingReplicas:    assignment.RemovingReplicas,
		Leader:              raw.Leader,
		LeaderEpoch:         raw.LeaderEpoch,
		PartitionEpoch:      raw.PartitionEpoch,
		LeaderRecoveryState: record.LeaderRecoveryState(raw.LeaderRecoveryState),
	}, nil
}

type entityConfig struct {
	Version int               `json:"version"`
	Config  map[string]string `json:"config"`
}

// EncodeConfig serializes the configs of a resource.
func EncodeConfig(config map[string]string) ([]byte, error) {
	if config == nil {
		config = map[string]string{}
	}
	return json.Marshal(entityConfig{Version: 1, Config: config})
}

// DecodeConfig parses the configs of a resource.
func DecodeConfig(path string, data []byte) (map[string]string, error) {
	var raw entityConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, malformed(path, err)
	}

	if raw.Config == nil {
		raw.Config = map[string]string{}
	}
	return raw.Config, nil
}

// ProducerIDBlock is a range of producer ids handed to one allocator.
type ProducerIDBlock struct {
	AssignedBroker  int32
	FirstProducerID int64
	Size            int64
}

// LastProducerID returns the last id of the block.
func (b ProducerIDBlock) LastProducerID() int64 {
	return b.FirstProducerID + b.Size - 1
}

// NextBlockFirstID returns the first id of the block following this one.
func (b ProducerIDBlock) NextBlockFirstID() int64 {
	return b.FirstProducerID + b.Size
}

type producerIDBlock struct {
	Version    int    `json:"version"`
	Broker     int32  `json:"broker"`
	BlockStart string `json:"block_start"`
	BlockEnd   string `json:"block_end"`
}

// EncodeProducerIDBlock serializes a producer id block. Bounds are written as
// decimal strings.
func EncodeProducerIDBlock(block ProducerIDBlock) ([]byte, error) {
	return json.Marshal(producerIDBlock{
		Version:    1,
		Broker:     block.AssignedBroker,
		BlockStart: strconv.FormatInt(block.FirstProducerID, 10),
		BlockEnd:   strconv.FormatInt(block.LastProducerID(), 10),
	})
}

// DecodeProducerIDBlock parses a producer id block.
func DecodeProducerIDBlock(data []byte) (ProducerIDBlock, error) {
	var raw producerIDBlock
	if err := json.Unmarshal(data, &raw); err != nil {
		return ProducerIDBlock{}, malformed(ProducerIDBlockPath, err)
	}

	start, err := strconv.ParseInt(raw.BlockStart, 10, 64)
	if err != nil {
		return ProducerIDBlock{}, malformed(ProducerIDBlockPath, err)
	}

	end, err := strconv.ParseInt(raw.BlockEnd, 10, 64)
	if err != nil {
		return ProducerIDBlock{}, malformed(ProducerIDBlockPath, err)
	}

	if end < start {
		return ProducerIDBlock{}, malformed(ProducerIDBlockPath, fmt.Errorf("block end %d precedes block start %d", end, start))
	}
	return ProducerIDBlock{AssignedBroker: raw.Broker, FirstProducerID: start, Size: end - start + 1}, nil
}

func nonNil(ids []int32) []int32 {
	if ids == nil {
		return []int32{}
	}
	return ids
}

func malformed(path string, err error) error {
	return fmt.Errorf("%w at %s: %w", gerrors.ErrMalformedNode, path, err)
}
