package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"lapse/internal/api"
	"lapse/internal/daemonrun"
)

// readJobFile decodes a job description in the same shape POST /api/jobs
// accepts.
func readJobFile(path string) (api.SubmitRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return api.SubmitRequest{}, fmt.Errorf("read job file: %w", err)
	}
	var req api.SubmitRequest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return api.SubmitRequest{}, fmt.Errorf("parse job file %s: %w", path, err)
	}
	return req, nil
}

func readBatchJobs(paths []string) ([]daemonrun.BatchJob, error) {
	jobs := make([]daemonrun.BatchJob, 0, len(paths))
	for _, path := range paths {
		req, err := readJobFile(path)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, daemonrun.BatchJob{Info: req.Job, CameraGUID: req.CameraGUID})
	}
	return jobs, nil
}
