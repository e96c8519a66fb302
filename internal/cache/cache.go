package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"esnafpos-backend/internal/config"

	"github.com/redis/go-redis/v9"
)

// Client nil ise cache devre dışıdır; çağıranlar canlı hesaplamaya düşer.
var Client *redis.Client

func Init(cfg *config.Config) {
	if cfg.RedisAddr == "" {
		return
	}

	c := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		log.Printf("[WARN] Redis'e bağlanılamadı (%s), cache devre dışı: %v", cfg.RedisAddr, err)
		return
	}

	Client = c
	log.Println("Redis bağlantısı başarılı:", cfg.RedisAddr)
}

func Enabled() bool {
	return Client != nil
}

// GetJSON: Anahtar varsa dest'e decode eder ve true döner. Cache kapalıysa
// veya anahtar yoksa false döner; hata cache'i kıran değil atlatan bir durumdur.
func GetJSON(ctx context.Context, key string, dest any) bool {
	if Client == nil {
		return false
	}
	raw, err := Client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// Bozuk kayıt: sil ve canlı hesapla
		Client.Del(ctx, key)
		return false
	}
	return true
}

func SetJSON(ctx context.Context, key string, val any, ttl time.Duration) {
	if Client == nil {
		return
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := Client.Set(ctx, key, raw, ttl).Err(); err != nil {
		log.Printf("[WARN] Cache yazılamadı (%s): %v", key, err)
	}
}

// DeletePattern: Mutasyon sonrası ilgili snapshot anahtarlarını temizler.
func DeletePattern(ctx context.Context, pattern string) {
	if Client == nil {
		return
	}
	iter := Client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		Client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("[WARN] Cache temizlenemedi (%s): %v", pattern, err)
	}
}
