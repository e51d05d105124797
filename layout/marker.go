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

	"github.com/zpllz/kafka/state"
)

type marker struct {
	Version               int    `json:"version"`
	QuorumControllerID    int32  `json:"kraft_controller_id"`
	QuorumControllerEpoch int32  `json:"kraft_controller_epoch"`
	QuorumMetadataOffset  int64  `json:"kraft_metadata_offset"`
	QuorumMetadataEpoch   int32  `json:"kraft_metadata_epoch"`
	LastUpdatedTimeMs     int64  `json:"last_updated_time_ms"`
	MigrationVersion      int64  `json:"migration_version"`
	BatchID               string `json:"batch_id,omitempty"`
}

// EncodeMarker serializes the migration marker of a state. migrationVersion
// is the value the marker will carry once written and batchID identifies the
// transaction writing it, so that a writer can recognize its own marker.
func EncodeMarker(s state.LeadershipState, migrationVersion int64, batchID string) ([]byte, error) {
	return json.Marshal(marker{
		Version:               0,
		QuorumControllerID:    s.QuorumControllerID(),
		QuorumControllerEpoch: s.QuorumControllerEpoch(),
		QuorumMetadataOffset:  s.QuorumMetadataOffset(),
		QuorumMetadataEpoch:   s.QuorumMetadataEpoch(),
		LastUpdatedTimeMs:     s.LastUpdatedTimeMs(),
		MigrationVersion:      migrationVersion,
		BatchID:               batchID,
	})
}

// DecodeMarker rebuilds the state recorded by a marker stored at markerVersion.
// The legacy controller half of the state is left unknown.
func DecodeMarker(data []byte, markerVersion int64) (state.LeadershipState, error) {
	var raw marker
	if err := json.Unmarshal(data, &raw); err != nil {
		return state.Empty, malformed(MigrationPath, err)
	}

	return state.Empty.
		WithNewQuorumController(raw.QuorumControllerID, raw.QuorumControllerEpoch).
		WithQuorumMetadataOffsetAndEpoch(raw.QuorumMetadataOffset, raw.QuorumMetadataEpoch).
		WithLastUpdatedTimeMs(raw.LastUpdatedTimeMs).
		WithMigrationVersion(raw.MigrationVersion, markerVersion), nil
}

// MarkerMigrationVersion extracts the migration version recorded by a marker.
func MarkerMigrationVersion(data []byte) (int64, error) {
	var raw marker
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, malformed(MigrationPath, err)
	}
	return raw.MigrationVersion, nil
}
