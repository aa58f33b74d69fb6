package repository

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/persistence"
)

// TempChannelsFile is the voice room document name inside the data directory.
const TempChannelsFile = "tempChannels.json"

// TempChannelRepository tracks live temporary voice rooms keyed by channel id.
type TempChannelRepository interface {
	Init() error
	Load(ctx context.Context) map[string]domain.TempChannel
	Get(ctx context.Context, channelID string) (domain.TempChannel, bool)
	Put(ctx context.Context, channel domain.TempChannel) error
	Remove(ctx context.Context, channelID string) error
}

type tempChannelRepository struct {
	doc *persistence.JSONDocument[map[string]domain.TempChannel]
}

// NewTempChannelRepository builds repository backed by <dataDir>/tempChannels.json.
func NewTempChannelRepository(dataDir string, logger *zap.Logger) TempChannelRepository {
	return &tempChannelRepository{
		doc: persistence.NewJSONDocument(filepath.Join(dataDir, TempChannelsFile), func() map[string]domain.TempChannel {
			return map[string]domain.TempChannel{}
		}, logger),
	}
}

func (r *tempChannelRepository) Init() error {
	return r.doc.Init()
}

func (r *tempChannelRepository) Load(_ context.Context) map[string]domain.TempChannel {
	channels := r.doc.Load()
	if channels == nil {
		return map[string]domain.TempChannel{}
	}
	for id, ch := range channels {
		if ch.ChannelID == "" {
			ch.ChannelID = id
			channels[id] = ch
		}
	}
	return channels
}

func (r *tempChannelRepository) Get(ctx context.Context, channelID string) (domain.TempChannel, bool) {
	ch, ok := r.Load(ctx)[channelID]
	return ch, ok
}

func (r *tempChannelRepository) Put(_ context.Context, channel domain.TempChannel) error {
	return r.doc.Update(func(channels *map[string]domain.TempChannel) error {
		if *channels == nil {
			*channels = map[string]domain.TempChannel{}
		}
		(*channels)[channel.ChannelID] = channel
		return nil
	})
}

func (r *tempChannelRepository) Remove(_ context.Context, channelID string) error {
	return r.doc.Update(func(channels *map[string]domain.TempChannel) error {
		delete(*channels, channelID)
		return nil
	})
}
