/*
 * MIT License
 *
 * Copyright (c) 2023 EASL and the vHive community
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package metric

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// Exporter accumulates run records and writes them out once at the end of a
// run. Appends are mutex-guarded; the driver and the sampler report
// concurrently.
type Exporter struct {
	mutex           sync.Mutex
	resourceRecords []ResourceRecord
	failureRecords  []FailureRecord
}

func NewExporter() *Exporter {
	return &Exporter{
		resourceRecords: []ResourceRecord{},
		failureRecords:  []FailureRecord{},
	}
}

func (ep *Exporter) ReportResources(records []ResourceRecord) {
	ep.mutex.Lock()
	defer ep.mutex.Unlock()
	ep.resourceRecords = append(ep.resourceRecords, records...)
}

func (ep *Exporter) ReportFailure(record FailureRecord) {
	ep.mutex.Lock()
	defer ep.mutex.Unlock()
	ep.failureRecords = append(ep.failureRecords, record)
}

func (ep *Exporter) GetResourceRecordLen() int {
	ep.mutex.Lock()
	defer ep.mutex.Unlock()
	return len(ep.resourceRecords)
}

func (ep *Exporter) GetFailureRecordLen() int {
	ep.mutex.Lock()
	defer ep.mutex.Unlock()
	return len(ep.failureRecords)
}

// FinishAndSave writes <prefix>_samples.csv, <prefix>_failures.csv and
// <prefix>_result.json next to each other, creating the directory if needed.
func (ep *Exporter) FinishAndSave(result *RunResult, pathPrefix string) error {
	ep.mutex.Lock()
	defer ep.mutex.Unlock()

	if dir := filepath.Dir(pathPrefix); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	samplesFile, err := os.Create(pathPrefix + "_samples.csv")
	if err != nil {
		return fmt.Errorf("create samples file: %w", err)
	}
	defer samplesFile.Close()

	if err = gocsv.MarshalFile(&ep.resourceRecords, samplesFile); err != nil {
		return fmt.Errorf("write samples: %w", err)
	}

	failuresFile, err := os.Create(pathPrefix + "_failures.csv")
	if err != nil {
		return fmt.Errorf("create failures file: %w", err)
	}
	defer failuresFile.Close()

	if err = gocsv.MarshalFile(&ep.failureRecords, failuresFile); err != nil {
		return fmt.Errorf("write failures: %w", err)
	}

	resultFile, err := os.Create(pathPrefix + "_result.json")
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}
	defer resultFile.Close()

	encoder := json.NewEncoder(resultFile)
	encoder.SetIndent("", "  ")
	if err = encoder.Encode(result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	log.Infof("Saved %d resource samples and %d failure records under %s",
		len(ep.resourceRecords), len(ep.failureRecords), pathPrefix)

	return nil
}

// SummarizeCPU computes the mean and standard deviation of CPU utilization
// across the collected samples.
func SummarizeCPU(records []ResourceRecord) (mean, stddev float64) {
	if len(records) == 0 {
		return 0, 0
	}

	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = r.CPUPercent
	}

	return stat.MeanStdDev(values, nil)
}

// PeakRSS returns the largest resident set size seen across the samples.
func PeakRSS(records []ResourceRecord) uint64 {
	var peak uint64
	for _, r := range records {
		if r.RSSBytes > peak {
			peak = r.RSSBytes
		}
	}

	return peak
}
