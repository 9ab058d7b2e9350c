package compliance_test

import (
	"testing"

	"govline/internal/compliance"
	"govline/internal/config"
)

func newValidator() *compliance.Validator {
	return compliance.New(config.Default("test"))
}

func TestForbiddenTermAndSpacingLiteral(t *testing.T) {
	v := newValidator()
	artifact := "this patch is marked do not ship\nmargin: 7px everywhere\n"
	report := v.Evaluate(artifact, "styles.css")
	if report.Summary.Errors != 1 {
		t.Fatalf("errors = %d, want 1", report.Summary.Errors)
	}
	if report.Summary.Warnings != 1 {
		t.Fatalf("warnings = %d, want 1", report.Summary.Warnings)
	}
	if report.Compliant {
		t.Fatalf("artifact with an error-severity finding must not be compliant")
	}
}

func TestCleanArtifactCompliant(t *testing.T) {
	v := newValidator()
	report := v.Evaluate("a perfectly ordinary paragraph about invoices", "doc.md")
	if !report.Compliant {
		t.Fatalf("clean artifact reported non-compliant: %+v", report.Violations)
	}
	if report.Violations == nil {
		t.Fatalf("violations must be a non-nil empty slice")
	}
	if len(report.Violations) != 0 {
		t.Fatalf("unexpected violations: %+v", report.Violations)
	}
}

func TestBinaryGarbageDoesNotFail(t *testing.T) {
	v := newValidator()
	garbage := string([]byte{0x00, 0xff, 0xfe, 0x01, 0x7f, 0x0a, 0x00, 0x9c})
	report := v.Evaluate(garbage, "blob.bin")
	if !report.Compliant {
		t.Fatalf("binary garbage should yield no findings, got %+v", report.Violations)
	}
}

func TestAnyTypeSuppression(t *testing.T) {
	v := newValidator()
	flagged := v.Evaluate("let x: any = load()", "main.ts")
	if flagged.Summary.Warnings != 1 {
		t.Fatalf("unsuppressed any should warn, got %+v", flagged.Summary)
	}
	suppressed := v.Evaluate("let x: any = load() // lint:allow-any", "main.ts")
	if len(suppressed.Violations) != 0 {
		t.Fatalf("suppressed line still flagged: %+v", suppressed.Violations)
	}
}

func TestLocaleRuleMatchesWholeIdentifiersOnly(t *testing.T) {
	v := newValidator()
	hit := v.Evaluate("const fahrzeug = loadVehicle()", "vehicle.ts")
	if hit.Summary.Errors != 1 {
		t.Fatalf("wrong-locale identifier not flagged: %+v", hit.Violations)
	}
	miss := v.Evaluate("const fahrzeugService = loadVehicle()", "vehicle.ts")
	if len(miss.Violations) != 0 {
		t.Fatalf("compound identifier should not match by substring: %+v", miss.Violations)
	}
}

func TestDebugNoiseSkippedInTestFiles(t *testing.T) {
	v := newValidator()
	prod := v.Evaluate("console.log(result)", "app.ts")
	if prod.Summary.Info != 1 {
		t.Fatalf("debug call in production file not flagged: %+v", prod.Summary)
	}
	if !prod.Compliant {
		t.Fatalf("info findings alone must keep the artifact compliant")
	}
	test := v.Evaluate("console.log(result)", "app.test.ts")
	if len(test.Violations) != 0 {
		t.Fatalf("debug call in test file should be tolerated: %+v", test.Violations)
	}
}

func TestEvaluateKindsScopesRules(t *testing.T) {
	v := newValidator()
	artifact := "margin: 7px\ndo not ship\n"
	report := v.EvaluateKinds(artifact, "x.css", []compliance.RuleKind{compliance.KindSpacingLiteral})
	if report.Summary.Errors != 0 || report.Summary.Warnings != 1 {
		t.Fatalf("scoped evaluation leaked other kinds: %+v", report.Summary)
	}
}
