package logger

// LogDownload logs the outcome of a single photo download.
func LogDownload(gallery, photoID string, success bool, err error) {
	fields := map[string]interface{}{
		"gallery":  gallery,
		"photo_id": photoID,
		"success":  success,
	}

	l := GetLogger().WithFields(fields)

	if err != nil {
		l.WithError(err).Error("download failed")
	} else if success {
		l.Debug("download completed")
	} else {
		l.Warn("download skipped")
	}
}

// LogRateLimit logs rate limiting events
func LogRateLimit(endpoint string, retryAfter int) {
	GetLogger().WithFields(map[string]interface{}{
		"endpoint":    endpoint,
		"retry_after": retryAfter,
		"action":      "rate_limited",
	}).Warn("rate limit reached, backing off")
}

// LogWalkProgress logs inventory traversal progress.
func LogWalkProgress(folders, galleries, photos int) {
	GetLogger().WithFields(map[string]interface{}{
		"folders":   folders,
		"galleries": galleries,
		"photos":    photos,
	}).Info("inventory walk progress")
}

// LogComponentStart logs when a phase of the export begins.
func LogComponentStart(component string) {
	GetLogger().WithField("component", component).Info("component started")
}
