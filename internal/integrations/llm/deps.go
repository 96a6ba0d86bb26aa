package llm

import (
	"carcare/internal/config"
	"carcare/internal/domain"
	"carcare/internal/httpx"
)

type Config = config.Config
type DiagnosisResult = domain.DiagnosisResult
type Severity = domain.Severity

var externalHTTPClient = httpx.ExternalHTTPClient()
