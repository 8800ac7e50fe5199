package notifications

import "context"

func (s *Store) CreateNotification(ctx context.Context, tenantID, employeeID, kind, title, body string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO notifications (tenant_id, employee_id, kind, title, body)
    VALUES ($1,$2,$3,$4,$5)
  `, tenantID, employeeID, kind, title, body)
	return err
}

// ListHRRecipients resolves the tenant's HR audience: employees whose user
// holds a role with the admin.system permission.
func (s *Store) ListHRRecipients(ctx context.Context, tenantID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT e.id
    FROM employees e
    JOIN users u ON e.user_id = u.id
    JOIN role_permissions rp ON u.role_id = rp.role_id
    JOIN permissions p ON rp.permission_id = p.id
    WHERE e.tenant_id = $1 AND p.key = 'admin.system'
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		recipients = append(recipients, id)
	}
	return recipients, nil
}

func (s *Store) EmployeeEmail(ctx context.Context, tenantID, employeeID string) (string, error) {
	var email string
	if err := s.DB.QueryRow(ctx, `
    SELECT u.email
    FROM employees e
    JOIN users u ON e.user_id = u.id
    WHERE e.tenant_id = $1 AND e.id = $2
  `, tenantID, employeeID).Scan(&email); err != nil {
		return "", err
	}
	return email, nil
}

func (s *Store) ListNotifications(ctx context.Context, tenantID, employeeID string, limit, offset int) ([]Notification, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, kind, title, body, read_at, created_at
    FROM notifications
    WHERE tenant_id = $1 AND employee_id = $2
    ORDER BY created_at DESC
    LIMIT $3 OFFSET $4
  `, tenantID, employeeID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var notice Notification
		if err := rows.Scan(&notice.ID, &notice.EmployeeID, &notice.Kind, &notice.Title, &notice.Body, &notice.ReadAt, &notice.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, notice)
	}
	return out, nil
}

func (s *Store) CountNotifications(ctx context.Context, tenantID, employeeID string) (int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM notifications WHERE tenant_id = $1 AND employee_id = $2", tenantID, employeeID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) MarkRead(ctx context.Context, tenantID, employeeID, notificationID string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE notifications SET read_at = now()
    WHERE tenant_id = $1 AND employee_id = $2 AND id = $3
  `, tenantID, employeeID, notificationID)
	return err
}

func (s *Store) EmailSettings(ctx context.Context, tenantID string) (bool, string, error) {
	var enabled bool
	var from string
	if err := s.DB.QueryRow(ctx, `
    SELECT email_notifications_enabled, COALESCE(email_from, '')
    FROM tenant_settings
    WHERE tenant_id = $1
  `, tenantID).Scan(&enabled, &from); err != nil {
		return false, "", err
	}
	return enabled, from, nil
}

func (s *Store) UpdateSettings(ctx context.Context, tenantID string, enabled bool, from string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO tenant_settings (tenant_id, email_notifications_enabled, email_from)
    VALUES ($1,$2,$3)
    ON CONFLICT (tenant_id) DO UPDATE
      SET email_notifications_enabled = EXCLUDED.email_notifications_enabled,
          email_from = EXCLUDED.email_from,
          updated_at = now()
  `, tenantID, enabled, nullIfEmpty(from))
	return err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
