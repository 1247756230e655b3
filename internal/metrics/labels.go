package metrics

const unknownLabel = "unknown"

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func chainLabel(chain string) string {
	if chain == "" {
		return unknownLabel
	}
	return chain
}
