package sqlite

const (
	saveVideoQuery = `
        INSERT INTO videos (
            id, user_id, title, description, playback_id,
            track_id, track_status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            title = excluded.title,
            description = excluded.description,
            playback_id = excluded.playback_id,
            track_id = excluded.track_id,
            track_status = excluded.track_status,
            updated_at = excluded.updated_at
    `

	getOwnedVideoQuery = `
        SELECT id, user_id, title, description, playback_id,
               track_id, track_status, created_at, updated_at
        FROM videos WHERE id = ? AND user_id = ?
    `

	updateTitleQuery = `
        UPDATE videos SET title = ?, updated_at = ?
        WHERE id = ? AND user_id = ?
    `

	updateDescriptionQuery = `
        UPDATE videos SET description = ?, updated_at = ?
        WHERE id = ? AND user_id = ?
    `

	insertUserQuery = `
        INSERT INTO users (id, external_id, name, image_url, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `

	getUserByExternalIDQuery = `
        SELECT id, external_id, name, image_url, created_at, updated_at
        FROM users WHERE external_id = ?
    `

	updateUserByExternalIDQuery = `
        UPDATE users SET name = ?, image_url = ?, updated_at = ?
        WHERE external_id = ?
    `

	deleteUserByExternalIDQuery = `
        DELETE FROM users WHERE external_id = ?
    `

	enqueueJobQuery = `
        INSERT INTO workflow_jobs (
            id, kind, video_id, user_id, status, attempts,
            last_error, run_after, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, 0, '', ?, ?, ?)
    `

	getJobQuery = `
        SELECT id, kind, video_id, user_id, status, attempts,
               last_error, leased_at, run_after, created_at, updated_at
        FROM workflow_jobs WHERE id = ?
    `

	leaseJobQuery = `
        UPDATE workflow_jobs SET
            status = 'running',
            attempts = attempts + 1,
            leased_at = ?,
            updated_at = ?
        WHERE id = (
            SELECT id FROM workflow_jobs
            WHERE status = 'pending' AND (run_after IS NULL OR run_after <= ?)
            ORDER BY created_at
            LIMIT 1
        )
        RETURNING id, kind, video_id, user_id, status, attempts,
                  last_error, leased_at, run_after, created_at, updated_at
    `

	releaseJobQuery = `
        UPDATE workflow_jobs SET
            status = 'pending',
            run_after = ?,
            last_error = ?,
            updated_at = ?
        WHERE id = ?
    `

	completeJobQuery = `
        UPDATE workflow_jobs SET status = 'completed', last_error = '', updated_at = ?
        WHERE id = ?
    `

	failJobQuery = `
        UPDATE workflow_jobs SET status = 'failed', last_error = ?, updated_at = ?
        WHERE id = ?
    `

	reclaimStaleJobsQuery = `
        UPDATE workflow_jobs SET status = 'pending', updated_at = ?
        WHERE status = 'running' AND leased_at < ?
    `

	getStepOutputQuery = `
        SELECT output FROM workflow_steps WHERE job_id = ? AND step = ?
    `

	saveStepOutputQuery = `
        INSERT INTO workflow_steps (job_id, step, output, created_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(job_id, step) DO UPDATE SET output = excluded.output
    `
)
