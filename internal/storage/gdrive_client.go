package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/codebuildervaibhav/highlight-clips/internal/types"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DriveArchiver copies finished clips into a Google Drive folder,
// one sub-folder per job
type DriveArchiver struct {
	service    *drive.Service
	folderName string
	folderID   string
}

// DriveOAuthConfig loads the OAuth client config from a credentials file
func DriveOAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}
	return config, nil
}

// NewDriveArchiver creates a Drive archiver from a credentials file and a
// previously saved token (see AuthorizeDrive)
func NewDriveArchiver(ctx context.Context, credentialsFile, tokenFile, folderName string) (*DriveArchiver, error) {
	config, err := DriveOAuthConfig(credentialsFile)
	if err != nil {
		return nil, err
	}

	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("no drive token at %s, run the drive-auth command first: %w", tokenFile, err)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive service: %w", err)
	}

	da := &DriveArchiver{
		service:    srv,
		folderName: folderName,
	}
	if err := da.ensureRootFolder(ctx); err != nil {
		return nil, err
	}
	return da, nil
}

// AuthorizeDrive runs the interactive OAuth flow and saves the token
func AuthorizeDrive(ctx context.Context, config *oauth2.Config, tokenFile string, in io.Reader, out io.Writer) error {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Go to the following link in your browser:\n%v\n", authURL)
	fmt.Fprint(out, "Enter authorization code: ")

	var authCode string
	if _, err := fmt.Fscan(in, &authCode); err != nil {
		return fmt.Errorf("unable to read authorization code: %w", err)
	}

	tok, err := config.Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return saveToken(tokenFile, tok)
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// Archive uploads the clip file and returns a shareable link
func (da *DriveArchiver) Archive(ctx context.Context, jobID string, clip types.Clip) (string, error) {
	jobFolderID, err := da.findOrCreateFolder(ctx, jobID, da.folderID)
	if err != nil {
		return "", fmt.Errorf("unable to create job folder: %w", err)
	}

	f, err := os.Open(clip.Filepath)
	if err != nil {
		return "", fmt.Errorf("failed to open clip: %w", err)
	}
	defer f.Close()

	file := &drive.File{
		Name:     clip.Filename,
		MimeType: "video/mp4",
		Parents:  []string{jobFolderID},
	}
	created, err := da.service.Files.Create(file).Media(f).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload clip: %w", err)
	}

	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", created.Id), nil
}

func (da *DriveArchiver) ensureRootFolder(ctx context.Context) error {
	query := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false",
		escapeQuery(da.folderName), folderMimeType)

	r, err := da.service.Files.List().Q(query).Spaces("drive").Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to search for folder: %w", err)
	}
	if len(r.Files) > 0 {
		da.folderID = r.Files[0].Id
		return nil
	}

	folder := &drive.File{Name: da.folderName, MimeType: folderMimeType}
	file, err := da.service.Files.Create(folder).Fields("id").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to create folder: %w", err)
	}
	da.folderID = file.Id
	return nil
}

func (da *DriveArchiver) findOrCreateFolder(ctx context.Context, name, parentID string) (string, error) {
	query := fmt.Sprintf("name='%s' and '%s' in parents and mimeType='%s' and trashed=false",
		escapeQuery(name), parentID, folderMimeType)

	r, err := da.service.Files.List().Q(query).Spaces("drive").Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(r.Files) > 0 {
		return r.Files[0].Id, nil
	}

	folder := &drive.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{parentID},
	}
	file, err := da.service.Files.Create(folder).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return file.Id, nil
}

func escapeQuery(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}
