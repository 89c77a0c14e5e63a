package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// User is a static account known to the reference directory.
type User struct {
	Token    string `yaml:"token"`
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	TenantID string `yaml:"tenant_id"`
	Role     string `yaml:"role"`
}

type Config struct {
	Env       string `yaml:"env" env-default:"local"`
	Directory struct {
		BaseURL string        `yaml:"base_url" env-default:"http://127.0.0.1:9100/api/v1"`
		Timeout time.Duration `yaml:"timeout" env-default:"10s"`
	} `yaml:"directory"`
	Socket struct {
		BaseURL           string        `yaml:"base_url" env-default:""`
		HandshakeTimeout  time.Duration `yaml:"handshake_timeout" env-default:"10s"`
		PingPeriod        time.Duration `yaml:"ping_period" env-default:"30s"`
		PongWait          time.Duration `yaml:"pong_wait" env-default:"60s"`
		WriteWait         time.Duration `yaml:"write_wait" env-default:"10s"`
		MaxMessageSize    int64         `yaml:"max_message_size" env-default:"65536"`
		ReconnectAttempts int           `yaml:"reconnect_attempts" env-default:"0"`
		ReconnectBackoff  time.Duration `yaml:"reconnect_backoff" env-default:"2s"`
	} `yaml:"socket"`
	Identity struct {
		UserID   string `yaml:"user_id" env:"LIVEDESK_USER_ID" env-default:""`
		Name     string `yaml:"name" env:"LIVEDESK_NAME" env-default:""`
		Email    string `yaml:"email" env:"LIVEDESK_EMAIL" env-default:""`
		Token    string `yaml:"token" env:"LIVEDESK_TOKEN" env-default:""`
		TenantID string `yaml:"tenant_id" env:"LIVEDESK_TENANT_ID" env-default:""`
	} `yaml:"identity"`
	Console struct {
		PollInterval time.Duration `yaml:"poll_interval" env-default:"5s"`
	} `yaml:"console"`
	Widget struct {
		Subject string `yaml:"subject" env-default:"Live Chat Support"`
	} `yaml:"widget"`
	Chat struct {
		TypingTimeout  time.Duration `yaml:"typing_timeout" env-default:"3s"`
		TypingThrottle time.Duration `yaml:"typing_throttle" env-default:"1s"`
		ToastLength    int           `yaml:"toast_length" env-default:"50"`
	} `yaml:"chat"`
	Prefs struct {
		Path string `yaml:"path" env-default:""`
	} `yaml:"prefs"`
	Telegram struct {
		Enabled bool   `yaml:"enabled" env-default:"false"`
		ApiKey  string `yaml:"api_key" env-default:""`
		ChatId  int64  `yaml:"chat_id" env-default:"0"`
	} `yaml:"telegram"`
	Listen struct {
		BindIP string `yaml:"bind_ip" env-default:"127.0.0.1"`
		Port   string `yaml:"port" env-default:"9100"`
	} `yaml:"listen"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env-default:"false"`
		Host     string `yaml:"host" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env-default:"27017"`
		User     string `yaml:"user" env-default:""`
		Password string `yaml:"password" env-default:""`
		Database string `yaml:"database" env-default:"livedesk"`
	} `yaml:"mongo"`
	Users []User `yaml:"users"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("%s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}

// Defaults returns a config populated only from env-default tags and the environment.
func Defaults() (*Config, error) {
	conf := &Config{}
	if err := cleanenv.ReadEnv(conf); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	return conf, nil
}
