package pkg

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/ecopia-map/cesium_tile_optimizer/internal/batch"
	"github.com/ecopia-map/cesium_tile_optimizer/internal/io"
)

type reportLine struct {
	RunID string `json:"run_id"`
	io.JobResult
}

// WriteReport writes one JSON line per tile, in discovery order.
func WriteReport(path string, summary *batch.Summary) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	for _, result := range summary.Results {
		if err := encoder.Encode(reportLine{RunID: summary.RunID, JobResult: result}); err != nil {
			return err
		}
	}
	if err := writer.Flush(); err != nil {
		return err
	}
	return file.Close()
}
