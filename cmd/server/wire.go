// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"gatortrader_backend/internal/app"
	"gatortrader_backend/internal/auth"
	"gatortrader_backend/internal/category"
	"gatortrader_backend/internal/chatbot"
	"gatortrader_backend/internal/config"
	"gatortrader_backend/internal/contact"
	"gatortrader_backend/internal/filestorage"
	"gatortrader_backend/internal/firebase"
	"gatortrader_backend/internal/jobs"
	"gatortrader_backend/internal/listing"
	"gatortrader_backend/internal/listing/esutil"
	"gatortrader_backend/internal/notification"
	"gatortrader_backend/internal/platform/elasticsearch"
	"gatortrader_backend/internal/platform/redis"
	"gatortrader_backend/internal/session"
	"gatortrader_backend/internal/shared"
	"gatortrader_backend/internal/transaction"
	"gatortrader_backend/internal/user"

	"github.com/google/wire"
)

var platformSet = wire.NewSet(
	provideLogger,
	provideDatabase,
	firebase.NewFirebaseService,
	elasticsearch.NewClient,
	redis.NewClient,
	session.NewBroker,
	wire.Bind(new(auth.Publisher), new(*session.Broker)),
)

var storageSet = wire.NewSet(
	filestorage.NewBlobStore,
	filestorage.NewImageUploader,
	wire.Bind(new(filestorage.Uploader), new(*filestorage.ImageUploader)),
)

var userSet = wire.NewSet(
	user.NewGORMRepository,
	user.NewService,
	user.NewHandler,
	wire.Bind(new(user.Service), new(*user.ServiceImplementation)),
	wire.Bind(new(shared.Service), new(*user.ServiceImplementation)),
	wire.Bind(new(auth.ProfileStore), new(*user.ServiceImplementation)),
)

var authSet = wire.NewSet(
	auth.NewFirebaseProvider,
	wire.Bind(new(auth.IdentityProvider), new(*auth.FirebaseProvider)),
	wire.Bind(new(shared.TokenVerifier), new(*auth.FirebaseProvider)),
	auth.NewService,
	wire.Bind(new(auth.Service), new(*auth.ServiceImplementation)),
	auth.NewHandler,
)

var marketplaceSet = wire.NewSet(
	category.NewGORMRepository,
	category.NewService,
	wire.Bind(new(category.Service), new(*category.ServiceImplementation)),
	category.NewHandler,

	esutil.NewIndexer,
	listing.NewGORMRepository,
	listing.NewService,
	wire.Bind(new(listing.Service), new(*listing.ServiceImplementation)),
	wire.Bind(new(transaction.ListingIndexer), new(*listing.ServiceImplementation)),
	listing.NewHandler,

	transaction.NewGORMRepository,
	transaction.NewUnitOfWork,
	transaction.NewService,
	wire.Bind(new(transaction.Service), new(*transaction.ServiceImplementation)),
	transaction.NewHandler,
)

var notificationSet = wire.NewSet(
	notification.NewGORMRepository,
	notification.NewGORMOutbox,
	notification.NewService,
	wire.Bind(new(notification.Service), new(*notification.ServiceImplementation)),
	wire.Bind(new(jobs.InAppRecorder), new(*notification.ServiceImplementation)),
	notification.NewHandler,
	notification.NewChannel,

	jobs.NewLease,
	jobs.DispatchConfigFrom,
	jobs.NewNotificationDispatcher,
)

var supportSet = wire.NewSet(
	contact.NewGORMRepository,
	contact.NewService,
	wire.Bind(new(contact.Service), new(*contact.ServiceImplementation)),
	contact.NewHandler,

	chatbot.NewOpenAICompleter,
	wire.Bind(new(chatbot.Completer), new(*chatbot.OpenAICompleter)),
	chatbot.NewHandler,
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		platformSet,
		storageSet,
		userSet,
		authSet,
		marketplaceSet,
		notificationSet,
		supportSet,
		wire.Struct(new(app.Handlers), "*"),
		app.NewServer,
	)
	return nil, nil, nil
}
