package dashboard

import (
	"fmt"
	"os/exec"

	"go.uber.org/zap"

	"github.com/gradientworks/tensorbridge/internal/infrastructure/logging"
	"github.com/gradientworks/tensorbridge/internal/shared/ports"
)

// binaryName is the dashboard binary looked up on PATH.
const binaryName = "tensorbridge-dash"

// Launch starts the dashboard as a separate process pointed at the
// engine daemon. Returns the running command and the chosen port; the
// caller owns the process and should Wait or Kill it.
func Launch(log *logging.Logger, engineAddr string, port int) (*exec.Cmd, int, error) {
	bin, err := exec.LookPath(binaryName)
	if err != nil {
		return nil, 0, fmt.Errorf("locate %s: %w", binaryName, err)
	}

	if port == 0 {
		port, err = ports.Free()
		if err != nil {
			return nil, 0, err
		}
	}

	cmd := exec.Command(bin,
		"-port", fmt.Sprintf("%d", port),
		"-engine", engineAddr,
	)
	if err := cmd.Start(); err != nil {
		return nil, 0, fmt.Errorf("start dashboard: %w", err)
	}

	log.Info("dashboard running",
		zap.String("url", fmt.Sprintf("http://127.0.0.1:%d", port)),
		zap.Int("pid", cmd.Process.Pid))
	return cmd, port, nil
}
