package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/glinharesb/rsasign/pkg/rsasign"
)

// DemoMessage is the message signed by the demo command.
const DemoMessage = "original data"

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the library version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			res := s.version()
			if err := a.printer(cmd).PrintResult("", res); err != nil {
				return err
			}
			return res.Err()
		},
	}
}

type demoStep struct {
	name string
	want rsasign.Code
	run  func() rsasign.Result
}

func newDemoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the full key lifecycle and check every result code",
		Long: `demo generates a key pair, exports the public key, signs "original data",
verifies the signature, deletes the key pair and verifies again. Every step
is checked against its expected result code.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			msg := []byte(DemoMessage)
			var sig []byte
			steps := []demoStep{
				{"getVersion", rsasign.CodeSuccess, s.version},
				{"deleteKeyPair", rsasign.CodeKeyNotFound, s.delete},
				{"generateKeyPair", rsasign.CodeSuccess, s.generate},
				{"getPublicKey", rsasign.CodeSuccess, s.publicKey},
				{"createSignature", rsasign.CodeSuccess, func() rsasign.Result {
					res := s.sign(msg)
					sig = res.Signature
					return res
				}},
				{"verifySignature", rsasign.CodeSuccess, func() rsasign.Result { return s.verify(msg, sig) }},
				{"deleteKeyPair", rsasign.CodeSuccess, s.delete},
				{"verifySignature", rsasign.CodeKeyNotFound, func() rsasign.Result { return s.verify(msg, sig) }},
			}

			var report Report
			var failed []error
			for _, step := range steps {
				res := step.run()
				report.Steps = append(report.Steps, NewResultView(step.name, res))
				if res.Code != step.want {
					failed = append(failed, fmt.Errorf("%s: got %s, want %s", step.name, res.Code, step.want))
				}
			}

			s.audit.Close()
			report.AddAudit(s.audit.Query("", "", time.Time{}, time.Time{}, 0))
			if err := a.printer(cmd).PrintReport(report); err != nil {
				return err
			}
			return errors.Join(failed...)
		},
	}
}

func newSignCommand(a *app) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Generate a key pair, sign a message and verify the signature",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			msg := []byte(message)
			var report Report
			record := func(step string, res rsasign.Result) error {
				report.Steps = append(report.Steps, NewResultView(step, res))
				if err := res.Err(); err != nil {
					return fmt.Errorf("%s: %w", step, err)
				}
				return nil
			}

			err = record("generateKeyPair", s.generate())
			if err == nil {
				sig := s.sign(msg)
				err = record("createSignature", sig)
				if err == nil {
					err = record("verifySignature", s.verify(msg, sig.Signature))
				}
			}
			if err := a.printer(cmd).PrintReport(report); err != nil {
				return err
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "message to sign")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}
