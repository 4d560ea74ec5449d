package deps

// CheckFFmpeg reports whether the configured encoder binary resolves.
func CheckFFmpeg(binary string) Status {
	results := CheckBinaries([]Requirement{{
		Name:        "FFmpeg",
		Command:     binary,
		Description: "Encodes rendered timelapses",
	}})
	return results[0]
}
