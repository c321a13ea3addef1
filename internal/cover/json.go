package cover

import "encoding/json"

// JSONFormatter writes coverage.json: the per-file counters plus summaries.
type JSONFormatter struct{}

func (JSONFormatter) Name() string { return "json" }

type jsonFile struct {
	*FileCoverage
	Summary Summary `json:"summary"`
}

type jsonReport struct {
	Summary Summary    `json:"summary"`
	Files   []jsonFile `json:"files"`
}

func (JSONFormatter) Format(d *Data, _ map[string][]byte) ([]ReportFile, error) {
	rep := jsonReport{Summary: d.Summary(), Files: make([]jsonFile, 0, len(d.Files))}
	for _, f := range d.Files {
		rep.Files = append(rep.Files, jsonFile{FileCoverage: f, Summary: f.Summary()})
	}
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return nil, err
	}
	return []ReportFile{{Path: "coverage.json", Content: append(b, '\n')}}, nil
}
