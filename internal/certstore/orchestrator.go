package certstore

import (
	"context"
	"fmt"
)

// Summary counts what happened to the blocks of one input file.
type Summary struct {
	Installed        int
	AlreadyInstalled int
	Skipped          int
}

// InstallAll installs every certificate in pemBytes under certPath, in file
// order. Blocks that are not certificates are skipped. The first transport
// error stops the run.
func (in *Installer) InstallAll(ctx context.Context, pemBytes []byte, certPath string) (Summary, error) {
	var sum Summary
	for _, block := range Decode(pemBytes) {
		if block.Err != nil {
			in.logger.Debug("skipping PEM block", "type", block.Type, "err", block.Err)
			sum.Skipped++
			continue
		}

		subject := block.Cert.Subject.String()
		in.logger.Info("installing certificate", "subject", subject)
		hash := LegacySubjectHash(block.Cert.RawSubject)
		in.logger.Info("calculated subject hash", "hash", fmt.Sprintf("%08x", hash))

		res, err := in.Install(ctx, BaseName(certPath, hash), block.Raw)
		if err != nil {
			return sum, fmt.Errorf("installing %q: %w", subject, err)
		}
		switch res.Outcome {
		case Installed:
			sum.Installed++
		case AlreadyInstalled:
			in.logger.Info("certificate already installed", "subject", subject, "path", res.Path)
			sum.AlreadyInstalled++
		}
	}

	if sum.Installed+sum.AlreadyInstalled == 0 {
		in.logger.Warn("no X.509 certificate found in input", "skipped", sum.Skipped)
	}
	return sum, nil
}
