package email

const (
	subjectJobFailedFmt = "[nurture] Trabajo de %s en error (%s)"
)
