// Package harness provides conformance testing for stated templates.
//
// The harness expands template sources with the engine, then type-checks
// the generated package together with short usage snippets. A snippet is
// expected either to compile or to be rejected by the type checker, which
// is how a typestate API proves that an out-of-order call cannot be
// written.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	templates:
//	  - path: mail.go
//	    file: mail.go.tmpl       # relative to the scenario, or
//	    source: |                # inline source
//	      //go:build stated
//	      package mail
//	      ...
//	expect:
//	  error: E134                # expansion must fail with this code
//	  warnings: [W140]
//	usage:
//	  - name: complete
//	    code: |
//	      _ = Build(Body(Recipient(NewMessageBuilder(), "bob"), "hi"))
//	    compiles: true
//	assertions:
//	  - type: output_contains
//	    text: "func Body["
//	  - type: operation
//	    operation: Body
//	    outgoing: [HasRecipient, Y]
//
// # Assertion Types
//
//   - output_contains: generated code contains text (whitespace-insensitive)
//   - output_excludes: generated code does not contain text
//   - operation: an operation was generated with the given kind, incoming
//     and outgoing tuples
//   - warning: expansion reported a warning with the given code
//
// # Golden Files
//
// RunWithGolden compares the canonical JSON of every file plan against
// testdata/golden/<name>.golden. Plans carry no positions or timestamps,
// so identical templates always produce identical bytes.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/builder.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
