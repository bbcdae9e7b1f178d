package app

import (
	"bytes"
	"testing"
)

// TestRun_ServeCommand_RequiresRedis はserveコマンドがRedis接続を試みることを検証する。
// テスト環境ではRedis接続が失敗するため、エラーが返ることを期待する。
func TestRun_ServeCommand_RequiresRedis(t *testing.T) {
	setTestEnv(t)

	var buf bytes.Buffer
	err := Run(&buf, []string{"serve"})
	if err == nil {
		t.Fatal("Run(serve) without reachable redis should return error")
	}
}

// TestRun_WorkerCommand_RequiresRedis はworkerコマンドがRedis接続を試みることを検証する。
func TestRun_WorkerCommand_RequiresRedis(t *testing.T) {
	setTestEnv(t)

	var buf bytes.Buffer
	err := Run(&buf, []string{"worker"})
	if err == nil {
		t.Fatal("Run(worker) without reachable redis should return error")
	}
}

func TestRun_WithMissingEnv_ReturnsError(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("BASE_URL", "")

	var buf bytes.Buffer
	err := Run(&buf, []string{"serve"})
	if err == nil {
		t.Fatal("Run with missing env should return error")
	}
}

// TestRun_Healthcheck_WithoutServer はサーバー不在時にhealthcheckが失敗することを検証する。
func TestRun_Healthcheck_WithoutServer(t *testing.T) {
	t.Setenv("SERVER_PORT", "1")

	var buf bytes.Buffer
	err := Run(&buf, []string{"healthcheck"})
	if err == nil {
		t.Fatal("Run(healthcheck) without server should return error")
	}
}

func setTestEnv(t *testing.T) {
	t.Helper()
	// ポート1には何もいないため、接続は即座に拒否される
	t.Setenv("REDIS_URL", "redis://localhost:1/0")
	t.Setenv("GOOGLE_CLIENT_ID", "test-client-id")
	t.Setenv("BASE_URL", "http://localhost:8080")
}
