// Package keyrate fetches the central bank key rate over the bank's SOAP
// endpoint. It is a remote collaborator for informational display only and
// plays no part in ledger semantics.
package keyrate

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Dan9191/bank-ledger/internal/config"
	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
)

// Client queries the central bank key-rate web service
type Client struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a key-rate client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		url: cfg.KeyRateURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// Current returns the latest published key rate, in percent.
func (c *Client) Current() (float64, error) {
	body, err := c.fetch()
	if err != nil {
		return 0, err
	}
	return c.parse(body)
}

func (c *Client) fetch() ([]byte, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -30)
	envelope := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
		<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope">
			<soap12:Body>
				<KeyRate xmlns="http://web.cbr.ru/">
					<fromDate>%s</fromDate>
					<ToDate>%s</ToDate>
				</KeyRate>
			</soap12:Body>
		</soap12:Envelope>`, from.Format("2006-01-02"), to.Format("2006-01-02"))

	req, err := http.NewRequest(http.MethodPost, c.url, bytes.NewBufferString(envelope))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("SOAPAction", "http://web.cbr.ru/KeyRate")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	c.log.Debugf("Key rate XML response: %s", body)
	return body, nil
}

func (c *Client) parse(rawBody []byte) (float64, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return 0, fmt.Errorf("failed to parse XML: %w", err)
	}

	// Rows come newest first; the first one carries the current rate.
	rows := doc.FindElements("//diffgram/KeyRate/KR")
	if len(rows) == 0 {
		return 0, fmt.Errorf("no key rate data found in response")
	}
	rateElement := rows[0].FindElement("./Rate")
	if rateElement == nil {
		return 0, fmt.Errorf("rate element not found in response")
	}

	rate, err := strconv.ParseFloat(rateElement.Text(), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse rate %q: %w", rateElement.Text(), err)
	}

	c.log.Infof("Retrieved key rate: %.2f%%", rate)
	return rate, nil
}
