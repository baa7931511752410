// Package browser は外部URL（OAuth認可画面、記事リンク）をユーザーのブラウザで開く。
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
)

// Opener はURLを外部ブラウザで開くインターフェース。
type Opener interface {
	Open(ctx context.Context, url string) error
}

// SystemOpener はOS標準のコマンドでURLを開く。
type SystemOpener struct {
	logger *slog.Logger
	// command はテスト用に差し替え可能なコマンド生成関数。
	command func(ctx context.Context, url string) *exec.Cmd
}

// NewSystemOpener はSystemOpenerを生成する。
func NewSystemOpener(logger *slog.Logger) *SystemOpener {
	if logger == nil {
		logger = slog.Default()
	}
	return &SystemOpener{logger: logger, command: systemCommand}
}

func systemCommand(ctx context.Context, url string) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		return exec.CommandContext(ctx, "open", url)
	case "windows":
		return exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return exec.CommandContext(ctx, "xdg-open", url)
	}
}

// Open はURLを開く。コマンドの終了は待たない。
func (o *SystemOpener) Open(ctx context.Context, url string) error {
	cmd := o.command(ctx, url)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	o.logger.Info("browser opened", slog.String("command", cmd.Path))
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

// LogOpener はURLをログに出すだけのOpener。
// ブラウザを持たない環境や、UIシェル側がURLを開く構成で使う。
type LogOpener struct {
	logger *slog.Logger
}

// NewLogOpener はLogOpenerを生成する。
func NewLogOpener(logger *slog.Logger) *LogOpener {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogOpener{logger: logger}
}

// Open はURLをログに出力する。
func (o *LogOpener) Open(_ context.Context, url string) error {
	o.logger.Info("open this URL in a browser", slog.String("url", url))
	return nil
}

// compile-time interface check
var (
	_ Opener = (*SystemOpener)(nil)
	_ Opener = (*LogOpener)(nil)
)
