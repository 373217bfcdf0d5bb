package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	// Максимальные длины для различных полей
	MaxTitleLength      = 200
	MaxGiveawayIDLength = 64

	// Минимальные длины
	MinTitleLength = 1
)

// Идентификатор гива: буквы, цифры, дефис и подчеркивание.
// Подчеркивание допустимо, ключ записи участия строится как <giveaway>_<user>.
var giveawayIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateTitle проверяет заголовок
func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title cannot be empty")
	}

	if len(title) < MinTitleLength {
		return fmt.Errorf("title must be at least %d characters long", MinTitleLength)
	}

	if len(title) > MaxTitleLength {
		return fmt.Errorf("title cannot exceed %d characters", MaxTitleLength)
	}

	return nil
}

// ValidateGiveawayID проверяет идентификатор гива
func ValidateGiveawayID(id string) error {
	if id == "" {
		return fmt.Errorf("giveaway id cannot be empty")
	}
	if len(id) > MaxGiveawayIDLength {
		return fmt.Errorf("giveaway id cannot exceed %d characters", MaxGiveawayIDLength)
	}
	if !giveawayIDRegex.MatchString(id) {
		return fmt.Errorf("giveaway id contains invalid characters")
	}
	return nil
}

// ValidateTaskLink проверяет внешнюю ссылку задания (http/https или tg://)
func ValidateTaskLink(link string) error {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return fmt.Errorf("invalid link: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return fmt.Errorf("link must have a host")
		}
	case "tg":
	default:
		return fmt.Errorf("unsupported link scheme %q", u.Scheme)
	}
	return nil
}
