/*
pipeline.go - Pipeline orchestration

PURPOSE:
  Wires the stages together: size guard -> raw parse cascade ->
  structural validation -> record validation -> aggregation -> recovery
  -> scoring. Each run is independent and touches no shared state, so
  concurrent runs need no coordination.

FAILURE SEMANTICS:
  Parse-cascade exhaustion and structural unusability are fatal: the
  result carries zero records, the verdict is forced to abort, and no
  partial data is produced. Record-level problems never abort the batch.

SEE ALSO:
  - parser.go through score.go: The individual stages
*/
package integrity

// Pipeline carries the per-instance resource bounds. The zero value is not
// usable; construct via NewPipeline.
type Pipeline struct {
	MaxPayloadBytes  int
	MaxParseAttempts int
}

// NewPipeline returns a pipeline with default bounds.
func NewPipeline() *Pipeline {
	return &Pipeline{
		MaxPayloadBytes:  DefaultMaxPayloadBytes,
		MaxParseAttempts: DefaultMaxParseAttempts,
	}
}

// Run validates and (per policy) recovers a raw payload.
func (p *Pipeline) Run(raw []byte, policy RecoveryPolicy) *DataIntegrityResult {
	policy = policy.Normalize()

	if limit := p.MaxPayloadBytes; limit > 0 && len(raw) > limit {
		err := &PayloadTooLargeError{Size: len(raw), Limit: limit}
		return fatalResult(nil, IntegrityError{
			Type:        ErrTypeDataCorruption,
			Severity:    SeverityCritical,
			Message:     err.Error(),
			Recoverable: false,
			RecordIndex: BatchScope,
		})
	}

	parsed := ParseRaw(raw, p.MaxParseAttempts)
	if !parsed.OK {
		result := fatalResult(parsed.Attempts, IntegrityError{
			Type:        ErrTypeJSONParse,
			Severity:    SeverityCritical,
			Message:     (&ParseExhaustedError{Attempts: parsed.Attempts}).Error(),
			Recoverable: false,
			RecordIndex: BatchScope,
		})
		return result
	}

	// Escalation bookkeeping: a syntax repair is an observation, a regex
	// fallback means the structure itself was unrecoverable.
	var escErrs []IntegrityError
	var escWarns []IntegrityWarning
	switch parsed.Strategy {
	case "syntax_repair":
		escWarns = append(escWarns, IntegrityWarning{
			Type:        WarnSyntaxRepaired,
			Message:     "payload required syntax repair before parsing",
			RecordIndex: BatchScope,
		})
	case "regex_fallback":
		escErrs = append(escErrs, IntegrityError{
			Type:        ErrTypeDataCorruption,
			Severity:    SeverityHigh,
			Message:     "payload structure was unparseable; records reconstructed by pattern extraction",
			Recoverable: true,
			RecordIndex: BatchScope,
		})
		escWarns = append(escWarns, IntegrityWarning{
			Type:        WarnRegexFallback,
			Message:     "regex fallback extraction used; verify reconstructed records",
			RecordIndex: BatchScope,
		})
	}

	result := p.runParsed(parsed.Value, policy, escErrs, escWarns)
	result.ParseAttempts = parsed.Attempts
	return result
}

// RunRecords validates a pre-parsed record list, skipping the parse cascade.
func (p *Pipeline) RunRecords(records []any, policy RecoveryPolicy) *DataIntegrityResult {
	return p.runParsed(records, policy.Normalize(), nil, nil)
}

func (p *Pipeline) runParsed(parsed any, policy RecoveryPolicy, priorErrs []IntegrityError, priorWarns []IntegrityWarning) *DataIntegrityResult {
	structural := ValidateStructure(parsed)
	structural.Errors = append(priorErrs, structural.Errors...)
	structural.Warnings = append(priorWarns, structural.Warnings...)

	if structural.Fatal() {
		result := fatalResult(nil, structural.Errors...)
		result.Warnings = structural.Warnings
		return result
	}

	perRecord := make([]*RecordResult, len(structural.Records))
	for i, el := range structural.Records {
		perRecord[i] = ValidateRecord(el, i)
	}

	agg := Aggregate(structural, perRecord, policy)
	outcome := Recover(agg, policy)

	allWarnings := append(agg.Warnings, outcome.Warnings...)
	summary := Score(agg.Errors, allWarnings, len(structural.Records))

	return &DataIntegrityResult{
		IsValid:         len(agg.Errors) == 0,
		HasCorruption:   agg.HasCorruption,
		Errors:          agg.Errors,
		Warnings:        allWarnings,
		RecoveryOptions: BuildRecoveryOptions(agg.Errors),
		Summary:         summary,
		Data:            outcome.Data,
		RecordsFixed:    outcome.RecordsFixed,
		RecordsSkipped:  outcome.RecordsSkipped,
	}
}

// fatalResult builds a zero-record failure result with a forced abort.
func fatalResult(attempts []ParseAttempt, errs ...IntegrityError) *DataIntegrityResult {
	summary := Score(errs, nil, 0)
	summary.RecommendedAction = ActionAbort

	return &DataIntegrityResult{
		IsValid:         false,
		HasCorruption:   true,
		Errors:          errs,
		RecoveryOptions: BuildRecoveryOptions(errs),
		Summary:         summary,
		ParseAttempts:   attempts,
	}
}
