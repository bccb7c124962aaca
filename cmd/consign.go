package main

import (
	"context"
	"fmt"

	ctx "github.com/Alcereo/consign-gateway/pkg/context"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

func main() {

	configInit()
	config := loadConfig()
	setupLogging(config.LogLevel)

	bytes, _ := yaml.Marshal(config)
	log.Tracef("Resolved config:\n%+v", string(bytes))

	gateway := ctx.NewContext()
	gateway.SetupCache(config.CacheAdapters)
	err := gateway.SetupAuthorization(
		context.Background(),
		config.Identity,
		config.PrivilegeStore,
		config.Authorization,
		config.CsrfKey,
	)
	if err != nil {
		log.Fatalf("Authorization setup error. Reason: %+v", err)
	}
	gateway.SetupRouters(config.Routers)

	port := viper.GetInt("port")
	log.Printf("Server starting on port %v", port)
	log.Fatal(gateway.BuildServer(port).ListenAndServe())
}

func setupLogging(logLevel ctx.LogLevel) {
	log.SetFormatter(&log.TextFormatter{
		ForceColors: true,
	})

	switch logLevel {
	case ctx.Info:
		log.SetLevel(log.InfoLevel)
	case ctx.Debug:
		log.SetLevel(log.DebugLevel)
	case ctx.Trace:
		log.SetLevel(log.TraceLevel)
	default:
		log.SetLevel(log.WarnLevel)
	}
}

func loadConfig() *ctx.ProxyConfiguration {
	var config ctx.ProxyConfiguration
	err := viper.Unmarshal(&config)
	if err != nil {
		panic(fmt.Errorf("Fatal error config file: %s \n", err))
	}

	viper.SetEnvPrefix("")
	_ = viper.BindEnv("CONSIGN_JWT_SECRET")
	if secret := viper.GetString("CONSIGN_JWT_SECRET"); secret != "" {
		config.Identity.JwtSecret = secret
	}

	_ = viper.BindEnv("CONSIGN_API_KEY")
	if apiKey := viper.GetString("CONSIGN_API_KEY"); apiKey != "" {
		config.Identity.ApiKey = apiKey
		config.PrivilegeStore.ApiKey = apiKey
	}

	_ = viper.BindEnv("CONSIGN_DATABASE_URL")
	if databaseUrl := viper.GetString("CONSIGN_DATABASE_URL"); databaseUrl != "" {
		config.PrivilegeStore.DatabaseUrl = databaseUrl
	}

	_ = viper.BindEnv("CONSIGN_CSRF_KEY")
	if csrfKey := viper.GetString("CONSIGN_CSRF_KEY"); csrfKey != "" {
		config.CsrfKey = csrfKey
	}
	return &config
}

func configInit() {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./cmd")

	// Defaults
	viper.SetDefault("port", 8080)
	viper.SetDefault("log-level", "warn")

	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("Fatal error config file: %s \n", err))
	}
}
