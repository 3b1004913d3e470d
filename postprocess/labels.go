package postprocess

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadLabels reads the labels used to train the detector from the given
// text file.  It should contain one label per line.
func LoadLabels(file string) ([]string, error) {

	// open the file
	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	scanner := bufio.NewScanner(f)

	var labels []string

	// read and trim each line
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}

	// check for errors during scanning
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	// drop trailing blank lines
	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}

	return labels, nil
}

// ResolveLabels fills in the Label of results that only carry a numeric
// Class using the given label list
func ResolveLabels(dets []DetectResult, labels []string) {
	for i := range dets {
		if dets[i].Label == "" && dets[i].Class >= 0 && dets[i].Class < len(labels) {
			dets[i].Label = labels[dets[i].Class]
		}
	}
}
