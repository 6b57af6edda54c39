package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"metis/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRunSummary(s model.RunSummary) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeRunSummary(data []byte) (model.RunSummary, error) {
	var summary model.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return model.RunSummary{}, err
	}
	if err := checkVersion(summary.VersionedRecord); err != nil {
		return model.RunSummary{}, err
	}
	return summary, nil
}

func EncodeEpisodeStats(episodes []model.EpisodeStats) ([]byte, error) {
	return json.Marshal(episodes)
}

func DecodeEpisodeStats(data []byte) ([]model.EpisodeStats, error) {
	var episodes []model.EpisodeStats
	if err := json.Unmarshal(data, &episodes); err != nil {
		return nil, err
	}
	for _, ep := range episodes {
		if err := checkVersion(ep.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return episodes, nil
}

func checkVersion(record model.VersionedRecord) error {
	if record.SchemaVersion != CurrentSchemaVersion {
		return fmt.Errorf("%w: schema version %d, expected %d",
			ErrVersionMismatch, record.SchemaVersion, CurrentSchemaVersion)
	}
	if record.CodecVersion != CurrentCodecVersion {
		return fmt.Errorf("%w: codec version %d, expected %d",
			ErrVersionMismatch, record.CodecVersion, CurrentCodecVersion)
	}
	return nil
}

// Stamp fills in the current schema/codec versions on a fresh record.
func Stamp() model.VersionedRecord {
	return model.VersionedRecord{
		SchemaVersion: CurrentSchemaVersion,
		CodecVersion:  CurrentCodecVersion,
	}
}
