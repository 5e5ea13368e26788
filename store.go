package main

import (
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"github.com/alexedwards/argon2id"
	"github.com/apibillme/cache"
	_ "github.com/mattn/go-sqlite3"
	"log"
	"os"
	"time"
)

type Store struct {
	db        *sql.DB
	log       *log.Logger
	userCache cache.Cache
}

const reqTable string = `
  CREATE TABLE IF NOT EXISTS reqdata (
      httpdata BLOB NOT NULL,
      hash TEXT NOT NULL,
      expiry INT NOT NULL
  )
`

const userTable string = `
  CREATE TABLE IF NOT EXISTS users (
      user TEXT NOT NULL,
      hash TEXT NOT NULL,
      level INT NOT NULL
  )
`

func NewStore(filename string) (*Store, error) {
	logger := log.New(os.Stderr, "(store) ", log.LstdFlags)

	db, err := sql.Open("sqlite3", "file:"+filename)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	for _, stmt := range []string{reqTable, userTable} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	userCache := cache.New(256, cache.WithTTL(1*time.Hour))

	return &Store{
		db:        db,
		log:       logger,
		userCache: userCache,
	}, nil
}

func (store *Store) Close() error {
	return store.db.Close()
}

func (store *Store) DeleteBefore(expiry int64) {
	_, err := store.db.Exec("DELETE FROM reqdata WHERE expiry < ?", expiry)
	if err != nil {
		dbError(store.log, err)
	}
}

// GetResponse returns the newest stored response for hash that has not
// expired at now.
func (store *Store) GetResponse(hash string, now int64) ([]byte, bool) {
	row := store.db.QueryRow(
		"SELECT httpdata FROM reqdata WHERE hash = ? AND expiry >= ? ORDER BY expiry DESC LIMIT 1",
		hash, now)
	var data []byte
	err := row.Scan(&data)
	if err == nil {
		return data, true
	}
	if !errors.Is(err, sql.ErrNoRows) {
		dbError(store.log, err)
	}
	return nil, false
}

func (store *Store) StoreResponse(hash string, res []byte, expiry int64) {
	_, err := store.db.Exec("INSERT INTO reqdata VALUES (?,?,?)",
		res,
		hash,
		expiry,
	)
	if err != nil {
		dbError(store.log, err)
	}
}

func (store *Store) AddUser(user string, pass string, level int) error {
	hash, err := argon2id.CreateHash(pass, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = store.db.Exec("INSERT INTO users VALUES (?,?,?)", user, hash, level)
	if err != nil {
		return fmt.Errorf("insert user %s: %w", user, err)
	}
	return nil
}

func (store *Store) HasUsers() bool {
	var n int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		dbError(store.log, err)
		return false
	}
	return n > 0
}

func (store *Store) TestUser(user string, pass string) bool {
	userPass, ok := store.userCache.Get(user)
	if ok && 1 == subtle.ConstantTimeCompare([]byte(userPass.(string)), []byte(pass)) {
		return true
	}
	row := store.db.QueryRow("SELECT hash FROM users WHERE user = ?", user)
	var hash string
	err := row.Scan(&hash)
	if err == nil {
		match, err := argon2id.ComparePasswordAndHash(pass, hash)
		if err != nil {
			store.log.Println("Error comparing password hashes", err.Error())
			return false
		}
		if match {
			store.userCache.Set(user, pass)
			return true
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		store.log.Println(err.Error())
	}
	return false
}

func dbError(log *log.Logger, err error) {
	if err != nil {
		log.Println("DB Error", err.Error())
	}
}
