package database

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/fulldump/replica/remote/memory"
)

const (
	StatusOpening   = "opening"
	StatusOperating = "operating"
	StatusClosing   = "closing"
)

var ErrorServiceNotFound = errors.New("service not found")
var ErrorServiceAlreadyExists = errors.New("service already exists")

type Config struct {
	// Services created on Load
	Services []string
	IdField  string
	Paginate memory.Paginate
}

// Database hosts the in memory services exposed by the api.
type Database struct {
	config   *Config
	mutex    *sync.RWMutex
	status   string
	services map[string]*memory.Service
	exit     chan struct{}
}

func NewDatabase(config *Config) *Database {
	return &Database{
		config:   config,
		mutex:    &sync.RWMutex{},
		status:   StatusOpening,
		services: map[string]*memory.Service{},
		exit:     make(chan struct{}),
	}
}

func (db *Database) GetStatus() string {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return db.status
}

func (db *Database) setStatus(status string) {
	db.mutex.Lock()
	db.status = status
	db.mutex.Unlock()
}

func (db *Database) CreateService(name string) (*memory.Service, error) {

	if name == "" {
		return nil, fmt.Errorf("service name is required")
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	if _, exists := db.services[name]; exists {
		return nil, fmt.Errorf("%w: '%s'", ErrorServiceAlreadyExists, name)
	}

	s := memory.New(memory.Options{
		IdField:  db.config.IdField,
		Paginate: db.config.Paginate,
	})
	db.services[name] = s

	return s, nil
}

func (db *Database) GetService(name string) (*memory.Service, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	s, exists := db.services[name]
	if !exists {
		return nil, fmt.Errorf("%w: '%s'", ErrorServiceNotFound, name)
	}
	return s, nil
}

// ListServices returns the service names sorted.
func (db *Database) ListServices() []string {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	names := make([]string, 0, len(db.services))
	for name := range db.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (db *Database) DropService(name string) error {
	db.mutex.Lock()
	s, exists := db.services[name]
	delete(db.services, name)
	db.mutex.Unlock()

	if !exists {
		return fmt.Errorf("%w: '%s'", ErrorServiceNotFound, name)
	}
	s.RemoveAll()
	return nil
}

// Load creates the configured services and starts operating.
func (db *Database) Load() error {

	for _, name := range db.config.Services {
		if _, err := db.CreateService(name); err != nil && !errors.Is(err, ErrorServiceAlreadyExists) {
			db.setStatus(StatusClosing)
			return err
		}
		log.Printf("Service '%s' ready\n", name)
	}

	db.setStatus(StatusOperating)

	return nil
}

func (db *Database) Start() error {

	go db.Load()

	<-db.exit

	return nil
}

func (db *Database) Stop() error {

	defer close(db.exit)

	db.setStatus(StatusClosing)

	db.mutex.RLock()
	defer db.mutex.RUnlock()
	for name, s := range db.services {
		log.Printf("Closing '%s'...\n", name)
		s.RemoveAll()
	}

	return nil
}
