package main

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	endpoint      string
	dsn           string
	uploadsDir    string
	uploadsURL    string
	logLevel      string
	env           string
	authSecretKey string
}

func generateRandomString(length int) string {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(b)
}

func NewConfig() Config {
	var (
		endpoint      string
		dsn           string
		uploadsDir    string
		uploadsURL    string
		logLevel      string
		env           string
		authSecretKey string
	)

	// Переменные окружения из .env имеют приоритет над флагами,
	// отсутствие файла ошибкой не считается.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARNING: .env file wasn't loaded due to %s\n", err)
	}

	flag.StringVar(&endpoint, "a", "localhost:8090", "address and port to run server")
	flag.StringVar(&dsn, "d", "", "data source name for database connection")
	flag.StringVar(&uploadsDir, "u", "uploads", "directory for dispatch photo uploads")
	flag.Parse()

	if address := os.Getenv("RUN_ADDRESS"); address != "" {
		endpoint = address
	}

	if d := os.Getenv("DATABASE_URI"); d != "" {
		dsn = d
	}

	if dir := os.Getenv("UPLOADS_DIR"); dir != "" {
		uploadsDir = dir
	}

	if base := os.Getenv("UPLOADS_BASE_URL"); base != "" {
		uploadsURL = base
	} else {
		uploadsURL = "http://" + endpoint + "/uploads"
	}

	if l := os.Getenv("LOG_LEVEL"); l != "" {
		logLevel = l
	} else {
		logLevel = "error"
	}

	if e := os.Getenv("ENV"); e != "" {
		env = e
	} else {
		env = "production"
	}

	if secret := os.Getenv("AUTH_SECRET_KEY"); secret != "" {
		authSecretKey = secret
	} else {
		if env == "production" {
			authSecretKey = generateRandomString(10)
			log.Printf("WARNING: AUTH_SECRET_KEY has to be defined for production environment\n")
		} else {
			authSecretKey = "development-key"
		}
	}

	return Config{
		endpoint,
		dsn,
		uploadsDir,
		uploadsURL,
		logLevel,
		env,
		authSecretKey,
	}
}
