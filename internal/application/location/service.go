// Package location decides whether a sign-in from a device needs an extra OTP step.
package location

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-otp-gate/internal/domain"
	"github.com/go-otp-gate/internal/pkg/hashutil"
	"github.com/go-otp-gate/internal/pkg/id"
)

const earthRadiusKM = 6371.0

type deviceStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Device, error)
	Put(ctx context.Context, d *domain.Device) error
}

type userLookup interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type Service interface {
	Assess(ctx context.Context, email string, info domain.DeviceInfo) (domain.LocationAssessment, error)
	// Trust records the device as trusted for userID, creating it if needed.
	Trust(ctx context.Context, userID string, info domain.DeviceInfo) error
}

type service struct {
	devices       deviceStore
	users         userLookup
	maxDistanceKM float64
}

func NewService(devices deviceStore, users userLookup, maxDistanceKM float64) Service {
	return &service{devices: devices, users: users, maxDistanceKM: maxDistanceKM}
}

func (s *service) Assess(ctx context.Context, email string, info domain.DeviceInfo) (domain.LocationAssessment, error) {
	untrusted := func(reason string) domain.LocationAssessment {
		return domain.LocationAssessment{Trusted: false, RequiresOTP: true, Reason: reason}
	}
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, domain.ErrNotFound) {
		return untrusted(domain.ReasonNewDevice), nil
	}
	if err != nil {
		return domain.LocationAssessment{}, err
	}
	devices, err := s.devices.ListByUser(ctx, u.UserID)
	if err != nil {
		return domain.LocationAssessment{}, err
	}
	known := match(devices, info)
	if known == nil || !known.Trusted {
		return untrusted(domain.ReasonNewDevice), nil
	}
	if info.Country != "" && known.Country != "" && !strings.EqualFold(info.Country, known.Country) {
		return untrusted(domain.ReasonCountryChanged), nil
	}
	if info.Latitude != nil && info.Longitude != nil && known.Latitude != nil && known.Longitude != nil {
		d := Distance(*known.Latitude, *known.Longitude, *info.Latitude, *info.Longitude)
		if d > s.maxDistanceKM {
			return untrusted(domain.ReasonImpossibleTravel), nil
		}
	}
	return domain.LocationAssessment{Trusted: true, RequiresOTP: false, Reason: domain.ReasonKnownDevice}, nil
}

func (s *service) Trust(ctx context.Context, userID string, info domain.DeviceInfo) error {
	devices, err := s.devices.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	d := match(devices, info)
	if d == nil {
		d = &domain.Device{
			DeviceID:  id.New(),
			UserID:    userID,
			UUID:      info.DeviceUUID,
			CreatedAt: now,
		}
	}
	d.Fingerprint = Fingerprint(info)
	d.UserAgent = info.UserAgent
	d.LastIP = info.IP
	if info.Country != "" {
		d.Country = strings.ToUpper(info.Country)
	}
	if info.Latitude != nil && info.Longitude != nil {
		d.Latitude, d.Longitude = info.Latitude, info.Longitude
	}
	d.Trusted = true
	d.UpdatedAt = now
	return s.devices.Put(ctx, d)
}

// Fingerprint identifies a device by its client-generated uuid and user agent.
func Fingerprint(info domain.DeviceInfo) string {
	return hashutil.SimpleHash(info.DeviceUUID + "|" + info.UserAgent)
}

func match(devices []domain.Device, info domain.DeviceInfo) *domain.Device {
	fp := Fingerprint(info)
	for i := range devices {
		if devices[i].Fingerprint == fp {
			return &devices[i]
		}
	}
	if info.DeviceUUID == "" {
		return nil
	}
	for i := range devices {
		if devices[i].UUID == info.DeviceUUID {
			return &devices[i]
		}
	}
	return nil
}

// Distance is the great-circle distance in kilometres (haversine).
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Min(1, math.Sqrt(a)))
}
