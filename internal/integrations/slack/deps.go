package slackbot

import (
	"carcare/internal/config"
	"carcare/internal/diagnosis"
	"carcare/internal/domain"
	"carcare/internal/telemetry"
)

type Config = config.Config
type Classifier = diagnosis.Classifier
type DiagnosisResult = domain.DiagnosisResult
type Alert = telemetry.Alert
