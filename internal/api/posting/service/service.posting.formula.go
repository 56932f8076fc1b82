package postingsvc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"meta_posting/internal/api/posting/models"
	"meta_posting/internal/common"
	"meta_posting/internal/global"
	"meta_posting/internal/logger"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gopkg.in/yaml.v3"
)

// FormulaService quản lý posting formula.
// Sửa formula không đụng tới counter đã tạo: limit mới chỉ áp cho cửa sổ mới.
type FormulaService struct {
	d *deps
}

// Create tạo formula mới sau khi validate
func (s *FormulaService) Create(ctx context.Context, f models.PostingFormula) (models.PostingFormula, error) {
	if err := validateFormula(f); err != nil {
		return models.PostingFormula{}, err
	}
	f.ID = primitive.NilObjectID
	return s.d.store.Formulas.Insert(ctx, f)
}

// Get lấy formula theo id
func (s *FormulaService) Get(ctx context.Context, id primitive.ObjectID) (models.PostingFormula, error) {
	return s.d.store.Formulas.FindByID(ctx, id)
}

// List trả về mọi formula
func (s *FormulaService) List(ctx context.Context) ([]models.PostingFormula, error) {
	return s.d.store.Formulas.List(ctx)
}

// Update thay toàn bộ formula, giữ nguyên id và cờ isSystemDefault
func (s *FormulaService) Update(ctx context.Context, id primitive.ObjectID, f models.PostingFormula) (models.PostingFormula, error) {
	current, err := s.d.store.Formulas.FindByID(ctx, id)
	if err != nil {
		return models.PostingFormula{}, err
	}
	if err := validateFormula(f); err != nil {
		return models.PostingFormula{}, err
	}
	f.ID = current.ID
	f.IsSystemDefault = current.IsSystemDefault
	return s.d.store.Formulas.Replace(ctx, f)
}

// Delete xoá formula; formula hệ thống không xoá được
func (s *FormulaService) Delete(ctx context.Context, id primitive.ObjectID) error {
	current, err := s.d.store.Formulas.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if current.IsSystemDefault {
		return common.WithDetails(common.ErrInvalidOperation, map[string]interface{}{
			"formulaId": id.Hex(), "reason": "system default formula cannot be deleted",
		})
	}
	return s.d.store.Formulas.Delete(ctx, id)
}

// Resolve trả formula áp cho group: formula của group -> system default -> fallback bảo thủ
func (s *FormulaService) Resolve(ctx context.Context, group models.AccountGroup) (models.PostingFormula, error) {
	if group.FormulaID != nil {
		f, err := s.d.store.Formulas.FindByID(ctx, *group.FormulaID)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return models.PostingFormula{}, err
		}
		logger.WithContext(ctx).WithFields(logrus.Fields{
			"group_id": group.ID.Hex(), "formula_id": group.FormulaID.Hex(),
		}).Warn("📐 [FORMULA] Formula của group không tồn tại, dùng system default")
	}
	f, err := s.d.store.Formulas.FindSystemDefault(ctx)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return models.PostingFormula{}, err
	}
	return models.FallbackFormula(), nil
}

// presetFile là cấu trúc file YAML preset
type presetFile struct {
	Formulas []models.PostingFormula `yaml:"formulas"`
}

// LoadPresets đọc danh sách formula từ file YAML
func LoadPresets(path string) ([]models.PostingFormula, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read formula presets: %w", err)
	}
	var file presetFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse formula presets: %w", err)
	}
	return file.Formulas, nil
}

// SeedPresets tạo các formula preset chưa có (theo name); chạy lại nhiều lần không tạo trùng
func (s *FormulaService) SeedPresets(ctx context.Context, presets []models.PostingFormula) (int, error) {
	created := 0
	for _, p := range presets {
		if _, err := s.d.store.Formulas.FindByName(ctx, p.Name); err == nil {
			continue
		} else if !errors.Is(err, common.ErrNotFound) {
			return created, err
		}
		if _, err := s.Create(ctx, p); err != nil {
			if errors.Is(err, common.ErrDuplicate) {
				continue
			}
			return created, fmt.Errorf("seed formula %q: %w", p.Name, err)
		}
		created++
	}
	return created, nil
}

var validatorOnce sync.Once

func validateFormula(f models.PostingFormula) error {
	validatorOnce.Do(func() {
		if global.Validate == nil {
			global.InitValidator()
		}
	})
	if err := global.Validate.Struct(f); err != nil {
		return common.WithDetails(common.ErrInvalidInput, err.Error())
	}
	if f.RestStrategy.Threshold > 0 && f.RestStrategy.RestDurationHours <= 0 {
		return common.WithDetails(common.ErrInvalidInput, "restStrategy.restDurationHours must be > 0 when threshold is set")
	}
	return nil
}
