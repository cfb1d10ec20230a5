package bot

import "testing"

func TestNewTelegramBotSkipsWithoutToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHANNEL_ID", "-100123")

	b, err := NewTelegramBot()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b != nil {
		t.Fatal("expected a nil bot when TELEGRAM_BOT_TOKEN is unset")
	}
}

func TestNewTelegramBotSkipsWithoutChannelID(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHANNEL_ID", "")

	b, err := NewTelegramBot()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b != nil {
		t.Fatal("expected a nil bot when TELEGRAM_CHANNEL_ID is unset")
	}
}

func TestNewTelegramBotRejectsNonNumericChannelID(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHANNEL_ID", "not-a-number")

	if _, err := NewTelegramBot(); err == nil {
		t.Fatal("expected an error for a non-numeric TELEGRAM_CHANNEL_ID")
	}
}
