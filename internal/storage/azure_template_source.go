package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureTemplateSource serves prompt templates from a blob container so a
// fleet of gateways can share centrally managed prompts.
type AzureTemplateSource struct {
	client    *azblob.Client
	container string
}

func NewAzureTemplateSource(accountName, accountKey, container string) (*AzureTemplateSource, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &AzureTemplateSource{client: client, container: container}, nil
}

func (s *AzureTemplateSource) Load(ctx context.Context, name string) (string, error) {
	response, err := s.client.DownloadStream(ctx, s.container, name, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.ErrorCode == string(bloberror.BlobNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("download template %s: %w", name, err)
	}

	reader := response.Body
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("read template %s: %w", name, err)
	}
	return buf.String(), nil
}
