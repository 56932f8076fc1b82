package main

import (
	"meta_posting/internal/global"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

func InitRegistry() {
	logrus.Info("Initialized registry")

	if global.MongoDB_Session == nil {
		logrus.Info("Không có MongoDB session, bỏ qua collection registry")
		return
	}

	if err := InitCollections(global.MongoDB_Session.Database(global.MongoDB_ServerConfig.MongoDB_DBName)); err != nil {
		logrus.Fatalf("Failed to initialize collections: %v", err)
	}
	logrus.Info("Initialized collection registry")
}

// InitCollections đăng ký các collection của posting engine vào registry
func InitCollections(db *mongo.Database) error {
	for _, name := range global.MongoDB_ColNames.AllCollectionNames() {
		registered, err := global.RegistryCollections.Register(name, db.Collection(name))
		if err != nil {
			logrus.Errorf("Failed to register collection %s: %v", name, err)
			return err
		}
		if registered {
			logrus.Debugf("Collection %s registered successfully", name)
		} else {
			logrus.Warnf("Collection %s already registered", name)
		}
	}
	return nil
}
