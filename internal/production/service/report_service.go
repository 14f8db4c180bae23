package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/canvastack/stencil-sub023/internal/production/entity"
	"github.com/minio/minio-go/v7"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ReportService 进度报告导出。
// 报告数据由ProgressTracker生成，这里负责落成Excel并可选上传对象存储。
type ReportService struct {
	progress *ProgressTracker
	logger   *zap.Logger

	storage *minio.Client
	bucket  string
}

func NewReportService(progress *ProgressTracker, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		progress: progress,
		logger:   logger,
	}
}

// SetStorage 配置对象存储，不配置则只支持直接下载
func (s *ReportService) SetStorage(client *minio.Client, bucket string) {
	s.storage = client
	s.bucket = bucket
}

// Generate 生成报告数据
func (s *ReportService) Generate(ctx context.Context, plan *entity.ProductionPlan) (*entity.ProgressReport, error) {
	return s.progress.GenerateReport(ctx, plan)
}

// ExportXLSX 导出进度报告Excel，返回文件内容和文件名
func (s *ReportService) ExportXLSX(ctx context.Context, plan *entity.ProductionPlan) ([]byte, string, error) {
	report, err := s.progress.GenerateReport(ctx, plan)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "进度报告"
	f.SetSheetName("Sheet1", sheet)

	rows := [][]interface{}{
		{"订单ID", report.OrderID},
		{"生成时间", report.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"整体进度", fmt.Sprintf("%.1f%%", report.OverallProgress*100)},
		{"当前阶段", report.CurrentPhase},
		{"时间线状态", report.TimelineStatus},
		{"进度偏差", fmt.Sprintf("%+.1f%%", report.TimelineVariance*100)},
		{"资源利用率", fmt.Sprintf("%.1f%%", report.ResourceUtilization*100)},
		{"质检通过率", fmt.Sprintf("%.1f%%", report.QualityPassRate*100)},
		{"质量得分", fmt.Sprintf("%.2f", report.QualityScore)},
		{"里程碑-已完成", report.Milestones.Completed},
		{"里程碑-进行中", report.Milestones.InProgress},
		{"里程碑-已逾期", report.Milestones.Overdue},
		{"里程碑-有风险", report.Milestones.AtRisk},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, "", fmt.Errorf("write report row: %w", err)
		}
	}

	base := len(rows) + 2
	f.SetCellValue(sheet, fmt.Sprintf("A%d", base), "风险提示")
	for i, indicator := range report.RiskIndicators {
		f.SetCellValue(sheet, fmt.Sprintf("B%d", base+i), indicator)
	}

	base += len(report.RiskIndicators) + 2
	f.SetCellValue(sheet, fmt.Sprintf("A%d", base), "处理建议")
	for i, rec := range report.Recommendations {
		f.SetCellValue(sheet, fmt.Sprintf("B%d", base+i), rec)
	}

	base += len(report.Recommendations) + 2
	if len(report.ActiveIssues) > 0 {
		header := []interface{}{"问题类型", "严重度", "描述", "影响"}
		f.SetSheetRow(sheet, fmt.Sprintf("A%d", base), &header)
		for i, issue := range report.ActiveIssues {
			row := []interface{}{issue.Type, string(issue.Severity), issue.Description, issue.Impact}
			f.SetSheetRow(sheet, fmt.Sprintf("A%d", base+1+i), &row)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("encode workbook: %w", err)
	}

	filename := fmt.Sprintf("progress_report_%s_%s.xlsx", report.OrderID, report.GeneratedAt.Format("20060102"))
	return buf.Bytes(), filename, nil
}

// ExportToStorage 导出并上传对象存储，返回对象名。
// 未配置存储时返回错误。
func (s *ReportService) ExportToStorage(ctx context.Context, plan *entity.ProductionPlan) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("object storage not configured")
	}

	data, filename, err := s.ExportXLSX(ctx, plan)
	if err != nil {
		return "", err
	}

	objectName := fmt.Sprintf("reports/%s/%s", time.Now().Format("2006/01"), filename)
	_, err = s.storage.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	})
	if err != nil {
		return "", fmt.Errorf("upload report: %w", err)
	}

	s.logger.Info("progress report uploaded",
		zap.String("order_id", plan.OrderID),
		zap.String("object", objectName),
	)
	return objectName, nil
}
