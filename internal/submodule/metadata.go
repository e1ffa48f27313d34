package submodule

// parseMetadataBlob validates and decodes a submodule metadata file's
// content: exactly 40 hex characters naming a sub-repo commit, with at
// most one trailing newline trimmed (spec §4.9 step 5, §9's decision
// on trailing whitespace -- anything else, including a trailing "\r",
// is invalid).
func parseMetadataBlob(raw []byte) (GitHash, error) {
	trimmed := raw
	if n := len(raw); n > 0 && raw[n-1] == '\n' {
		trimmed = raw[:n-1]
	}
	return ParseGitHash(trimmed)
}
