package feishu

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkbitable "github.com/larksuite/oapi-sdk-go/v3/service/bitable/v1"

	"PaperSieve/pkg/logger"
)

const defaultBaseURL = "https://open.feishu.cn"

// Client 把每日推荐上传为飞书多维表格，需要自建应用的 app_id / app_secret
type Client struct {
	AppID        string
	AppSecret    string
	FileName     string // 多维表格的名字
	BaseURL      string
	httpClient   *http.Client
	feishuClient *lark.Client
}

// NewClient 创建新的飞书客户端
func NewClient(appID, appSecret, fileName string) *Client {
	return &Client{
		AppID:        appID,
		AppSecret:    appSecret,
		FileName:     fileName,
		BaseURL:      defaultBaseURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		feishuClient: lark.NewClient(appID, appSecret),
	}
}

// WithBaseURL 替换开放平台地址（私有化部署、测试）
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.BaseURL = strings.TrimRight(baseURL, "/")
	c.feishuClient = lark.NewClient(c.AppID, c.AppSecret,
		lark.WithOpenBaseUrl(c.BaseURL),
		lark.WithHttpClient(c.httpClient))
	return c
}

// getTenantAccessToken 获取 Tenant Access Token
func (c *Client) getTenantAccessToken(ctx context.Context) (string, error) {
	url := c.BaseURL + "/open-apis/auth/v3/tenant_access_token/internal"

	jsonData, err := json.Marshal(map[string]string{
		"app_id":     c.AppID,
		"app_secret": c.AppSecret,
	})
	if err != nil {
		return "", fmt.Errorf("marshal data error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request error: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request error: %w", err)
	}
	defer resp.Body.Close()

	var result TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response error: %w", err)
	}
	if result.Code != 0 {
		return "", fmt.Errorf("API error: code=%d, msg=%s", result.Code, result.Msg)
	}
	return result.TenantAccessToken, nil
}

// createBitable 创建多维表格
func (c *Client) createBitable(ctx context.Context, fileName, tenantAccessToken string) (string, string, error) {
	req := larkbitable.NewCreateAppReqBuilder().
		ReqApp(larkbitable.NewReqAppBuilder().
			Name(fileName).
			Build()).
		Build()

	resp, err := c.feishuClient.Bitable.V1.App.Create(ctx, req, larkcore.WithTenantAccessToken(tenantAccessToken))
	if err != nil {
		return "", "", fmt.Errorf("create bitable error: %w", err)
	}
	if !resp.Success() {
		return "", "", fmt.Errorf("create bitable failed: logId=%s, error=%s",
			resp.RequestId(), larkcore.Prettify(resp.CodeError))
	}
	if resp.Data == nil || resp.Data.App == nil || resp.Data.App.AppToken == nil {
		return "", "", fmt.Errorf("create bitable: 响应缺少 app_token")
	}

	url := ""
	if resp.Data.App.Url != nil {
		url = *resp.Data.App.Url
	}
	return *resp.Data.App.AppToken, url, nil
}

// createTableInBitable 在多维表格中创建数据表，所有字段都是文本
func (c *Client) createTableInBitable(ctx context.Context, appToken, tableName string, headers []string, tenantAccessToken string) (string, error) {
	fields := make([]*larkbitable.AppTableCreateHeader, len(headers))
	for i, header := range headers {
		fields[i] = larkbitable.NewAppTableCreateHeaderBuilder().
			FieldName(header).
			Type(1).
			Build()
	}

	req := larkbitable.NewCreateAppTableReqBuilder().
		AppToken(appToken).
		Body(larkbitable.NewCreateAppTableReqBodyBuilder().
			Table(larkbitable.NewReqTableBuilder().
				Name(tableName).
				DefaultViewName("默认视图").
				Fields(fields).
				Build()).
			Build()).
		Build()

	resp, err := c.feishuClient.Bitable.V1.AppTable.Create(ctx, req, larkcore.WithTenantAccessToken(tenantAccessToken))
	if err != nil {
		return "", fmt.Errorf("create table error: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("create table failed: logId=%s, error=%s",
			resp.RequestId(), larkcore.Prettify(resp.CodeError))
	}
	if resp.Data == nil || resp.Data.TableId == nil {
		return "", fmt.Errorf("tableId is nil")
	}
	return *resp.Data.TableId, nil
}

// addRecordsToBitable 分批写入，每批最多 batchSize 条
func (c *Client) addRecordsToBitable(ctx context.Context, appToken, tableID string, records []*larkbitable.AppTableRecord, tenantAccessToken string) error {
	const batchSize = 500

	for i := 0; i < len(records); i += batchSize {
		end := min(i+batchSize, len(records))

		req := larkbitable.NewBatchCreateAppTableRecordReqBuilder().
			AppToken(appToken).
			TableId(tableID).
			Body(larkbitable.NewBatchCreateAppTableRecordReqBodyBuilder().
				Records(records[i:end]).
				Build()).
			Build()

		resp, err := c.feishuClient.Bitable.V1.AppTableRecord.BatchCreate(ctx, req, larkcore.WithTenantAccessToken(tenantAccessToken))
		if err != nil {
			return fmt.Errorf("add records error: %w", err)
		}
		if !resp.Success() {
			return fmt.Errorf("add records failed: logId=%s, error=%s",
				resp.RequestId(), larkcore.Prettify(resp.CodeError))
		}
	}
	return nil
}

// ParseCSV 读取 CSV，去掉 Excel 用的 BOM
func ParseCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)

	headers, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("读取表头失败: %w", err)
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("读取记录失败: %w", err)
	}
	return headers, records, nil
}

// toBitableRecords 将 CSV 记录转换为飞书记录格式
func toBitableRecords(headers []string, rows [][]string) []*larkbitable.AppTableRecord {
	records := make([]*larkbitable.AppTableRecord, len(rows))
	for i, row := range rows {
		fields := make(map[string]interface{}, len(headers))
		for j, header := range headers {
			if j < len(row) {
				fields[header] = row[j]
			}
		}
		records[i] = larkbitable.NewAppTableRecordBuilder().
			Fields(fields).
			Build()
	}
	return records
}

// UploadCSVToBitable 将 CSV 上传为新的多维表格，返回表格 URL
func (c *Client) UploadCSVToBitable(ctx context.Context, csvFilePath, tableName string) (string, error) {
	file, err := os.Open(csvFilePath)
	if err != nil {
		return "", fmt.Errorf("打开文件失败: %w", err)
	}
	defer file.Close()

	headers, rows, err := ParseCSV(file)
	if err != nil {
		return "", fmt.Errorf("解析 CSV 失败: %w", err)
	}
	logger.Debug("CSV 文件包含 %d 列，%d 行数据", len(headers), len(rows))

	token, err := c.getTenantAccessToken(ctx)
	if err != nil {
		return "", fmt.Errorf("获取 tenant access token 失败: %w", err)
	}

	appToken, url, err := c.createBitable(ctx, c.FileName, token)
	if err != nil {
		return "", fmt.Errorf("创建多维表格失败: %w", err)
	}

	tableID, err := c.createTableInBitable(ctx, appToken, tableName, headers, token)
	if err != nil {
		return "", fmt.Errorf("创建数据表失败: %w", err)
	}

	if err := c.addRecordsToBitable(ctx, appToken, tableID, toBitableRecords(headers, rows), token); err != nil {
		return "", fmt.Errorf("添加记录失败: %w", err)
	}
	return url, nil
}
